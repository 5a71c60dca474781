package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/output"
	"github.com/roach88/mathgraph/internal/value"
)

// Rendered is one call received by a RecordingRenderer.
type Rendered struct {
	// Name is set for RenderValue calls.
	Name  string
	Value value.Value
	// Series is set for RenderSeries calls.
	Series []output.Entry
}

// RecordingRenderer is an output.Renderer that keeps every call.
type RecordingRenderer struct {
	Calls []Rendered
}

var _ output.Renderer = (*RecordingRenderer)(nil)

// RenderValue implements output.Renderer.
func (r *RecordingRenderer) RenderValue(name string, v value.Value) {
	r.Calls = append(r.Calls, Rendered{Name: name, Value: v})
}

// RenderSeries implements output.Renderer.
func (r *RecordingRenderer) RenderSeries(entries []output.Entry) {
	cp := make([]output.Entry, len(entries))
	copy(cp, entries)
	r.Calls = append(r.Calls, Rendered{Series: cp})
}

// Last returns the most recent call.
func (r *RecordingRenderer) Last() (Rendered, bool) {
	if len(r.Calls) == 0 {
		return Rendered{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}

// Reset forgets recorded calls.
func (r *RecordingRenderer) Reset() {
	r.Calls = nil
}

// Report is one failure received by a RecordingConsole.
type Report struct {
	Node string
	Err  error
}

// RecordingConsole is a graph.Console that keeps every report.
type RecordingConsole struct {
	Reports []Report
}

var _ graph.Console = (*RecordingConsole)(nil)

// Report implements graph.Console.
func (c *RecordingConsole) Report(node string, err error) {
	c.Reports = append(c.Reports, Report{Node: node, Err: err})
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewGraph returns a Graph with a discarded log and a recording console.
func NewGraph(opts ...graph.Option) (*graph.Graph, *RecordingConsole) {
	console := &RecordingConsole{}
	base := []graph.Option{
		graph.WithLogger(DiscardLogger()),
		graph.WithConsole(console),
	}
	return graph.New(append(base, opts...)...), console
}
