package document

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// Apply builds the document's Nodes into g.
//
// The first pass creates every Node with its options and literal
// parameters. The second pass attaches References, so forward references
// resolve regardless of order. Finally the Output names are exported to the
// graph's sink, if it has one. Function names resolve through lib.
func Apply(g *graph.Graph, doc *Document, lib *funcs.Library) error {
	for _, rec := range doc.Nodes {
		if err := createNode(g, rec, lib); err != nil {
			return err
		}
	}

	for _, rec := range doc.Nodes {
		bindings := rec.Bindings()
		for _, key := range sortedKeys(bindings) {
			b := bindings[key]
			if !b.IsReference() {
				continue
			}
			if err := g.SetArg(rec.Name, key, graph.Reference(b.Ref)); err != nil {
				return &LoadError{Node: rec.Name, Param: key, Err: err}
			}
		}
	}

	if sink := g.Sink(); sink != nil {
		for _, name := range doc.Output {
			n, ok := g.Node(name)
			if !ok {
				return &LoadError{Node: name, Err: fmt.Errorf("output: %w", graph.ErrUnknownNode)}
			}
			sink.Connect(n)
		}
	}

	slog.Debug("document applied", "name", doc.Name, "nodes", len(doc.Nodes))
	return nil
}

func createNode(g *graph.Graph, rec NodeRecord, lib *funcs.Library) error {
	v, err := rec.resolve(lib)
	if err != nil {
		return &LoadError{Node: rec.Name, Err: err}
	}
	n, err := g.Create(rec.Name, v)
	if err != nil {
		return &LoadError{Node: rec.Name, Err: err}
	}

	for _, key := range sortedKeys(rec.Options) {
		n.SetOption(key, rec.Options[key])
	}

	bindings := rec.Bindings()
	for _, key := range sortedKeys(bindings) {
		b := bindings[key]
		if b.IsReference() {
			continue
		}
		// The value pseudo-parameter of a literal Node is the Node's value.
		if rec.Func == "" && key == value.ValueParam {
			continue
		}
		lit, err := literal(b.Value)
		if err != nil {
			return &LoadError{Node: rec.Name, Param: key, Err: err}
		}
		if err := g.SetArg(rec.Name, key, graph.Literal(lit)); err != nil {
			return &LoadError{Node: rec.Name, Param: key, Err: err}
		}
	}
	return nil
}

// resolve returns the value the record's Node wraps.
func (r NodeRecord) resolve(lib *funcs.Library) (value.Value, error) {
	if r.Func == "" {
		return literal(r.Value)
	}
	if lib == nil {
		return nil, fmt.Errorf("function %q: %w", r.Func, funcs.ErrNotFound)
	}
	f, err := lib.Get(r.Func)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
