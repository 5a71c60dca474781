package document

import (
	"fmt"
	"strings"

	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/value"
)

// Validation error codes (E200-E299)
const (
	ErrNodeNameEmpty      = "E201" // node name is required
	ErrDuplicateNode      = "E202" // node names must be unique
	ErrUnknownFunc        = "E203" // func is not in the library
	ErrFuncWithValue      = "E204" // a node has either func or value
	ErrUnknownRef         = "E205" // ref names no node
	ErrSelfRef            = "E206" // ref names its own node
	ErrSharedOutput       = "E207" // a node feeds more than one parameter
	ErrUnknownOutput      = "E208" // output names no node
	ErrUnknownParam       = "E209" // param is not in the function's signature
	ErrBindingRefAndLit   = "E210" // a binding has either ref or value
	ErrUnsupportedLiteral = "E211" // literal cannot be converted
)

// ValidationError is one problem found in a Document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks doc against lib without building a graph.
// Returns all errors found (does not fail-fast).
func Validate(doc *Document, lib *funcs.Library) []ValidationError {
	var errs []ValidationError

	names := make(map[string]bool, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)

		if strings.TrimSpace(rec.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "node name is required and must be non-empty",
				Code:    ErrNodeNameEmpty,
			})
			continue
		}
		if names[rec.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate node name: %q", rec.Name),
				Code:    ErrDuplicateNode,
			})
		}
		names[rec.Name] = true
	}

	// Which parameter each node feeds, to catch a second consumer.
	feeds := make(map[string]string)

	for i, rec := range doc.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)

		var spec value.ArgSpec
		switch {
		case rec.Func != "" && rec.Value != nil:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("node %q sets both func and value", rec.Name),
				Code:    ErrFuncWithValue,
			})
		case rec.Func != "":
			f, ok := lookup(lib, rec.Func)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".func",
					Message: fmt.Sprintf("unknown function %q", rec.Func),
					Code:    ErrUnknownFunc,
				})
				break
			}
			spec = value.SpecOf(f)
		default:
			lit, err := literal(rec.Value)
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".value",
					Message: err.Error(),
					Code:    ErrUnsupportedLiteral,
				})
				break
			}
			spec = value.SpecOf(lit)
		}

		bindings := rec.Bindings()
		for _, key := range sortedKeys(bindings) {
			b := bindings[key]
			bfield := fmt.Sprintf("%s.args.%s", field, key)
			if _, ok := rec.Kwargs[key]; ok {
				bfield = fmt.Sprintf("%s.kwargs.%s", field, key)
			}

			if len(spec.Names()) > 0 && !spec.Has(key) {
				errs = append(errs, ValidationError{
					Field:   bfield,
					Message: fmt.Sprintf("node %q has no parameter %q", rec.Name, key),
					Code:    ErrUnknownParam,
				})
			}

			if !b.IsReference() {
				if _, err := literal(b.Value); err != nil {
					errs = append(errs, ValidationError{
						Field:   bfield + ".value",
						Message: err.Error(),
						Code:    ErrUnsupportedLiteral,
					})
				}
				continue
			}
			if b.Value != nil {
				errs = append(errs, ValidationError{
					Field:   bfield,
					Message: "binding sets both ref and value",
					Code:    ErrBindingRefAndLit,
				})
			}
			switch {
			case b.Ref == rec.Name:
				errs = append(errs, ValidationError{
					Field:   bfield + ".ref",
					Message: fmt.Sprintf("node %q references itself", rec.Name),
					Code:    ErrSelfRef,
				})
			case !names[b.Ref]:
				errs = append(errs, ValidationError{
					Field:   bfield + ".ref",
					Message: fmt.Sprintf("unknown node %q", b.Ref),
					Code:    ErrUnknownRef,
				})
			default:
				target := rec.Name + "." + key
				if prev, ok := feeds[b.Ref]; ok {
					errs = append(errs, ValidationError{
						Field:   bfield + ".ref",
						Message: fmt.Sprintf("node %q already feeds %s; a node has one outbound connection", b.Ref, prev),
						Code:    ErrSharedOutput,
					})
				} else {
					feeds[b.Ref] = target
				}
			}
		}
	}

	for i, name := range doc.Output {
		if !names[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("output[%d]", i),
				Message: fmt.Sprintf("unknown node %q", name),
				Code:    ErrUnknownOutput,
			})
		}
	}

	return errs
}

func lookup(lib *funcs.Library, name string) (*value.Func, bool) {
	if lib == nil {
		return nil, false
	}
	return lib.Lookup(name)
}
