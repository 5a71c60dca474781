package document

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/mathgraph/internal/value"
)

//go:embed schema.cue
var schemaSource []byte

// ParseCUE decodes a CUE document. The document is unified with the
// closed #Document schema, so unknown fields and non-concrete values are
// rejected with their source position.
func ParseCUE(filename string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return decodeDocument(unified)
}

func decodeDocument(v cue.Value) (*Document, error) {
	doc := &Document{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Name = name
	}

	nodes, err := v.LookupPath(cue.ParsePath("nodes")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for nodes.Next() {
		rec, err := decodeNode(nodes.Value())
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, rec)
	}

	if outVal := v.LookupPath(cue.ParsePath("output")); outVal.Exists() {
		iter, err := outVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			doc.Output = append(doc.Output, name)
		}
	}
	return doc, nil
}

func decodeNode(v cue.Value) (NodeRecord, error) {
	var rec NodeRecord

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return rec, formatCUEError(err)
	}
	rec.Name = name

	if fnVal := v.LookupPath(cue.ParsePath("func")); fnVal.Exists() {
		if rec.Func, err = fnVal.String(); err != nil {
			return rec, formatCUEError(err)
		}
	}

	if litVal := v.LookupPath(cue.ParsePath("value")); litVal.Exists() {
		lit, err := decodeLiteral(litVal)
		if err != nil {
			return rec, err
		}
		rec.Value = value.ToNative(lit)
	}

	if posVal := v.LookupPath(cue.ParsePath("position")); posVal.Exists() {
		x, err := posVal.LookupPath(cue.ParsePath("x")).Float64()
		if err != nil {
			return rec, formatCUEError(err)
		}
		y, err := posVal.LookupPath(cue.ParsePath("y")).Float64()
		if err != nil {
			return rec, formatCUEError(err)
		}
		rec.Position = &Position{X: x, Y: y}
	}

	if connVal := v.LookupPath(cue.ParsePath("connection")); connVal.Exists() {
		consumer, err := connVal.LookupPath(cue.ParsePath("consumer")).String()
		if err != nil {
			return rec, formatCUEError(err)
		}
		param, err := connVal.LookupPath(cue.ParsePath("param")).String()
		if err != nil {
			return rec, formatCUEError(err)
		}
		rec.Connection = &ConnectionRecord{Consumer: consumer, Param: param}
	}

	if rec.Args, err = decodeBindings(v.LookupPath(cue.ParsePath("args"))); err != nil {
		return rec, err
	}
	if rec.Kwargs, err = decodeBindings(v.LookupPath(cue.ParsePath("kwargs"))); err != nil {
		return rec, err
	}

	if optVal := v.LookupPath(cue.ParsePath("options")); optVal.Exists() {
		iter, err := optVal.Fields()
		if err != nil {
			return rec, formatCUEError(err)
		}
		rec.Options = make(map[string]string)
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return rec, formatCUEError(err)
			}
			rec.Options[iter.Selector().Unquoted()] = s
		}
	}
	return rec, nil
}

func decodeBindings(v cue.Value) (map[string]BindingRecord, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]BindingRecord)
	for iter.Next() {
		key := iter.Selector().Unquoted()
		bv := iter.Value()

		var b BindingRecord
		if refVal := bv.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
			if b.Ref, err = refVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if litVal := bv.LookupPath(cue.ParsePath("value")); litVal.Exists() {
			lit, err := decodeLiteral(litVal)
			if err != nil {
				return nil, err
			}
			b.Value = value.ToNative(lit)
		}
		out[key] = b
	}
	return out, nil
}

// decodeLiteral converts a concrete CUE value into a Value.
func decodeLiteral(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := value.Array{}
		for iter.Next() {
			el, err := decodeLiteral(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, el)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := value.Object{}
		for iter.Next() {
			el, err := decodeLiteral(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = el
		}
		return obj, nil
	default:
		return nil, &ParseError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported value kind %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
