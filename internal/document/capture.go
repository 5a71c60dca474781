package document

import (
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// Layout maps Node names to canvas positions.
type Layout map[string]Position

// exporter is the part of output.Sink Capture reads.
type exporter interface {
	Members() []string
	LogHolder() (string, bool)
}

// Capture serializes g into a Document in Node creation order.
//
// Unbound parameters are omitted. A literal Node's value pseudo-parameter
// is recorded only while it holds a Reference. When the graph's sink can
// list its members, they become the Output, log holder last.
func Capture(g *graph.Graph, name string, layout Layout) *Document {
	doc := &Document{Name: name}

	for _, nodeName := range g.Names() {
		n, ok := g.Node(nodeName)
		if !ok {
			continue
		}
		doc.Nodes = append(doc.Nodes, captureNode(n, layout))
	}

	if ex, ok := g.Sink().(exporter); ok {
		doc.Output = append(doc.Output, ex.Members()...)
		if holder, ok := ex.LogHolder(); ok {
			doc.Output = append(doc.Output, holder)
		}
	}
	return doc
}

func captureNode(n *graph.Node, layout Layout) NodeRecord {
	rec := NodeRecord{Name: n.Name()}

	if f, ok := n.Value().(*value.Func); ok {
		rec.Func = f.Name
	} else {
		rec.Value = value.ToNative(n.Value())
	}

	if pos, ok := layout[n.Name()]; ok {
		p := pos
		rec.Position = &p
	}
	if conn, ok := n.Connection(); ok {
		rec.Connection = &ConnectionRecord{Consumer: conn.Consumer, Param: conn.Param}
	}

	rec.Args = captureBindings(n.Args(), n.IsInvocable())
	rec.Kwargs = captureBindings(n.Kwargs(), n.IsInvocable())

	if opts := n.Options(); len(opts) > 0 {
		rec.Options = opts
	}
	return rec
}

func captureBindings(params []graph.Param, invocable bool) map[string]BindingRecord {
	var out map[string]BindingRecord
	for _, p := range params {
		var b BindingRecord
		switch {
		case p.Binding.IsReference():
			b.Ref = p.Binding.Ref
		case !p.Binding.IsBound():
			continue
		case !invocable && p.Key == value.ValueParam:
			continue
		default:
			b.Value = value.ToNative(p.Binding.Value)
		}
		if out == nil {
			out = make(map[string]BindingRecord)
		}
		out[p.Key] = b
	}
	return out
}
