// Package sourcesync applies HCL source to a graph.
//
// Each top-level assignment names a Node:
//
//	a = 2             // literal: create or update a
//	b = add(a, 2)     // call: b wraps add, a is a Reference, 2 a Literal
//	c = b * k         // expression: helper Node mul(b, k), c references it
//
// Calls may name a builtin or an existing invocable Node. Operators and
// nested calls become helper Nodes named after their function through
// Graph.UniqueName; they are marked with the "helper" option and replaced
// when their assignment is synced again. Every change goes through the
// public graph API, and names are checked for membership before they are
// bound.
package sourcesync

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// HelperOption is the Node option set on generated helper Nodes.
const HelperOption = "helper"

// ErrUnsupported is returned for syntax that has no graph equivalent.
var ErrUnsupported = errors.New("unsupported expression")

// Result lists what a sync touched.
type Result struct {
	// Assigned holds the assignment targets applied, in source order.
	Assigned []string
	// Helpers holds the helper Nodes created, in creation order.
	Helpers []string
}

// Syncer applies source to one graph.
type Syncer struct {
	g      *graph.Graph
	lib    *funcs.Library
	logger *slog.Logger

	helpers []string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// New returns a Syncer writing into g. Function names resolve through lib
// first, then through invocable Nodes of g.
func New(g *graph.Graph, lib *funcs.Library, opts ...Option) *Syncer {
	s := &Syncer{g: g, lib: lib, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply parses src and applies it to g with a default Syncer.
func Apply(g *graph.Graph, lib *funcs.Library, filename string, src []byte) (Result, error) {
	return New(g, lib).Apply(filename, src)
}

// Apply parses src and applies its assignments in source order.
//
// A failed assignment does not stop the ones after it. Parse errors and
// failed assignments are returned together as a *SyncError.
func (s *Syncer) Apply(filename string, src []byte) (Result, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return Result{}, &SyncError{Diags: diags}
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return Result{}, fmt.Errorf("sync %s: unexpected body type %T", filename, file.Body)
	}

	for _, block := range body.Blocks {
		diags = append(diags, diagnostic(
			"Unsupported block",
			fmt.Sprintf("blocks are not assignments; %q is ignored", block.Type),
			block.DefRange(),
		))
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	var res Result
	var firstErr error
	for _, attr := range attrs {
		s.helpers = nil
		err := s.assign(attr.Name, attr.Expr)
		res.Helpers = append(res.Helpers, s.helpers...)
		if err != nil {
			s.logger.Warn("assignment failed", "name", attr.Name, "error", err)
			diags = append(diags, diagnostic(
				"Cannot apply assignment",
				fmt.Sprintf("%s: %v", attr.Name, err),
				attr.Expr.Range(),
			))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug("assignment applied", "name", attr.Name)
		res.Assigned = append(res.Assigned, attr.Name)
	}

	if diags.HasErrors() {
		return res, &SyncError{Diags: diags, Err: firstErr}
	}
	return res, nil
}

func (s *Syncer) assign(name string, expr hclsyntax.Expression) error {
	expr = unwrap(expr)
	if err := s.dropHelpers(name); err != nil {
		return err
	}

	if isConstant(expr) {
		v, err := constant(expr)
		if err != nil {
			return err
		}
		_, err = s.g.Create(name, v)
		return err
	}

	if call, ok := expr.(*hclsyntax.FunctionCallExpr); ok {
		return s.call(name, call)
	}

	// Anything else aliases a Node: a literal Node whose value parameter
	// references the expression's Node.
	b, err := s.bind(expr)
	if err != nil {
		return err
	}
	if n, ok := s.g.Node(name); !ok || n.IsInvocable() {
		if _, err := s.g.Create(name, value.Null{}); err != nil {
			return err
		}
	}
	return s.g.SetArg(name, value.ValueParam, b)
}

// call makes name an invocable Node for expr and binds its arguments.
func (s *Syncer) call(name string, expr *hclsyntax.FunctionCallExpr) error {
	if expr.ExpandFinal {
		return fmt.Errorf("%s(...): argument expansion: %w", expr.Name, ErrUnsupported)
	}
	fn, err := s.callee(expr.Name)
	if err != nil {
		return err
	}
	return s.invoke(name, fn, expr.Args)
}

func (s *Syncer) invoke(name string, fn *value.Func, args []hclsyntax.Expression) error {
	params := value.SpecOf(fn).Names()
	if len(args) > len(params) {
		return fmt.Errorf("%s takes %d arguments, got %d", fn.Name, len(params), len(args))
	}

	bindings := make([]graph.Binding, len(args))
	for i, arg := range args {
		b, err := s.bind(arg)
		if err != nil {
			return fmt.Errorf("%s: argument %s: %w", fn.Name, params[i], err)
		}
		bindings[i] = b
	}

	if _, err := s.g.Create(name, fn); err != nil {
		return err
	}
	for i, key := range params {
		b := graph.Unbound
		if i < len(bindings) {
			b = bindings[i]
		}
		if err := s.g.SetArg(name, key, b); err != nil {
			return err
		}
	}
	return nil
}

// callee resolves a function name: builtins first, then invocable Nodes.
func (s *Syncer) callee(name string) (*value.Func, error) {
	if s.lib != nil {
		if fn, ok := s.lib.Lookup(name); ok {
			return fn, nil
		}
	}
	if n, ok := s.g.Node(name); ok {
		if fn, ok := n.Value().(*value.Func); ok {
			return fn, nil
		}
		return nil, fmt.Errorf("node %q is not invocable", name)
	}
	return nil, fmt.Errorf("function %q: %w", name, funcs.ErrNotFound)
}

// bind returns the Binding for an argument expression, creating helper
// Nodes for calls and operators.
func (s *Syncer) bind(expr hclsyntax.Expression) (graph.Binding, error) {
	expr = unwrap(expr)
	if isConstant(expr) {
		v, err := constant(expr)
		if err != nil {
			return graph.Unbound, err
		}
		return graph.Literal(v), nil
	}

	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			return graph.Unbound, fmt.Errorf("attribute access: %w", ErrUnsupported)
		}
		root := e.Traversal.RootName()
		if !s.g.Has(root) {
			return graph.Unbound, fmt.Errorf("%q: %w", root, graph.ErrUnknownNode)
		}
		return graph.Reference(root), nil

	case *hclsyntax.FunctionCallExpr:
		if e.ExpandFinal {
			return graph.Unbound, fmt.Errorf("%s(...): argument expansion: %w", e.Name, ErrUnsupported)
		}
		fn, err := s.callee(e.Name)
		if err != nil {
			return graph.Unbound, err
		}
		return s.helper(fn, e.Args)

	case *hclsyntax.BinaryOpExpr:
		fn, err := s.operator(e.Op)
		if err != nil {
			return graph.Unbound, err
		}
		return s.helper(fn, []hclsyntax.Expression{e.LHS, e.RHS})

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return graph.Unbound, fmt.Errorf("unary operator: %w", ErrUnsupported)
		}
		fn, err := s.builtin("neg")
		if err != nil {
			return graph.Unbound, err
		}
		return s.helper(fn, []hclsyntax.Expression{e.Val})
	}
	return graph.Unbound, fmt.Errorf("%T: %w", expr, ErrUnsupported)
}

// helper creates a Node named after fn for a sub-expression.
func (s *Syncer) helper(fn *value.Func, args []hclsyntax.Expression) (graph.Binding, error) {
	name := s.g.UniqueName(fn.Name)
	if err := s.invoke(name, fn, args); err != nil {
		return graph.Unbound, err
	}
	n, _ := s.g.Node(name)
	n.SetOption(HelperOption, "true")
	s.helpers = append(s.helpers, name)
	s.logger.Debug("helper created", "node", name, "func", fn.Name)
	return graph.Reference(name), nil
}

func (s *Syncer) operator(op *hclsyntax.Operation) (*value.Func, error) {
	var token string
	switch op {
	case hclsyntax.OpAdd:
		token = "+"
	case hclsyntax.OpSubtract:
		token = "-"
	case hclsyntax.OpMultiply:
		token = "*"
	case hclsyntax.OpDivide:
		token = "/"
	case hclsyntax.OpModulo:
		token = "%"
	default:
		return nil, fmt.Errorf("operator: %w", ErrUnsupported)
	}
	name, _ := funcs.OperatorFunc(token)
	return s.builtin(name)
}

func (s *Syncer) builtin(name string) (*value.Func, error) {
	if s.lib == nil {
		return nil, fmt.Errorf("function %q: %w", name, funcs.ErrNotFound)
	}
	return s.lib.Get(name)
}

// dropHelpers deletes the helper Nodes feeding name, depth first.
func (s *Syncer) dropHelpers(name string) error {
	n, ok := s.g.Node(name)
	if !ok {
		return nil
	}
	for _, p := range append(n.Args(), n.Kwargs()...) {
		if !p.Binding.IsReference() {
			continue
		}
		h, ok := s.g.Node(p.Binding.Ref)
		if !ok {
			continue
		}
		if flag, _ := h.Option(HelperOption); flag != "true" {
			continue
		}
		if err := s.dropHelpers(h.Name()); err != nil {
			return err
		}
		if err := s.g.Delete(h.Name()); err != nil {
			return err
		}
		s.logger.Debug("helper removed", "node", h.Name(), "consumer", name)
	}
	return nil
}

func unwrap(expr hclsyntax.Expression) hclsyntax.Expression {
	for {
		p, ok := expr.(*hclsyntax.ParenthesesExpr)
		if !ok {
			return expr
		}
		expr = p.Expression
	}
}

// isConstant reports whether expr evaluates without variables or calls.
func isConstant(expr hclsyntax.Expression) bool {
	return len(expr.Variables()) == 0 && !hasCall(expr)
}

func constant(expr hclsyntax.Expression) (value.Value, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return fromCty(v)
}

// hasCall walks the syntax tree looking for function calls.
func hasCall(expr hclsyntax.Expression) bool {
	if expr == nil {
		return false
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		return true
	case *hclsyntax.BinaryOpExpr:
		return hasCall(e.LHS) || hasCall(e.RHS)
	case *hclsyntax.ConditionalExpr:
		return hasCall(e.Condition) || hasCall(e.TrueResult) || hasCall(e.FalseResult)
	case *hclsyntax.UnaryOpExpr:
		return hasCall(e.Val)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			if hasCall(part) {
				return true
			}
		}
	case *hclsyntax.TemplateWrapExpr:
		return hasCall(e.Wrapped)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			if hasCall(item) {
				return true
			}
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			if hasCall(item.KeyExpr) || hasCall(item.ValueExpr) {
				return true
			}
		}
	case *hclsyntax.IndexExpr:
		return hasCall(e.Collection) || hasCall(e.Key)
	case *hclsyntax.ParenthesesExpr:
		return hasCall(e.Expression)
	}
	return false
}
