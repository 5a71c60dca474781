// Package output exports computed Node values to a rendering collaborator.
//
// A Sink holds an ordered list of series-shaped Nodes plus one exclusive
// "log" slot for scalar or text display. A Node occupies at most one of the
// two. The Sink never mutates the graph; it only forwards what the graph
// pushes to it.
package output

import (
	"log/slog"
	"slices"

	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// Entry is one keyed value of the multi-series display.
type Entry struct {
	Name  string
	Value value.Value
}

// Renderer is the rendering collaborator.
type Renderer interface {
	// RenderValue displays the value of the log holder.
	RenderValue(name string, v value.Value)
	// RenderSeries displays every list member in order.
	RenderSeries(entries []Entry)
}

// RendererFuncs adapts two plain functions to Renderer. Nil fields are
// skipped.
type RendererFuncs struct {
	Value  func(name string, v value.Value)
	Series func(entries []Entry)
}

// RenderValue implements Renderer.
func (r RendererFuncs) RenderValue(name string, v value.Value) {
	if r.Value != nil {
		r.Value(name, v)
	}
}

// RenderSeries implements Renderer.
func (r RendererFuncs) RenderSeries(entries []Entry) {
	if r.Series != nil {
		r.Series(entries)
	}
}

// Sink implements graph.Sink.
type Sink struct {
	renderer Renderer
	logger   *slog.Logger

	members []string
	values  map[string]value.Value
	log     string
}

var _ graph.Sink = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// New creates an empty Sink forwarding to r. A nil renderer discards output.
func New(r Renderer, opts ...Option) *Sink {
	if r == nil {
		r = RendererFuncs{}
	}
	s := &Sink{
		renderer: r,
		logger:   slog.Default(),
		values:   make(map[string]value.Value),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect exports n.
//
// A Node computing to an invocable or to null has nothing to show and is
// ignored. Scalar and text Nodes take the log slot, evicting its previous
// holder. Anything else is appended to the ordered list; connecting a
// member again only refreshes it.
func (s *Sink) Connect(n *graph.Node) {
	name := n.Name()
	v := n.Compute()

	switch value.ClassOf(v) {
	case value.ClassInvocable, value.ClassNull:
		s.logger.Debug("sink ignoring undisplayable node", "node", name)
		return

	case value.ClassScalar, value.ClassText:
		s.removeMember(name)
		if s.log != "" && s.log != name {
			s.logger.Debug("evicting log holder", "node", s.log, "by", name)
		}
		s.log = name
		s.renderer.RenderValue(name, v)

	default:
		if s.log == name {
			s.log = ""
		}
		if !slices.Contains(s.members, name) {
			s.members = append(s.members, name)
		}
		s.values[name] = v
		s.renderer.RenderSeries(s.Snapshot())
	}
	s.logger.Info("node exported", "node", name)
}

// Disconnect stops exporting the named Node.
func (s *Sink) Disconnect(name string) {
	if s.log == name {
		s.log = ""
		s.logger.Info("node unexported", "node", name, "slot", "log")
		return
	}
	if s.removeMember(name) {
		s.logger.Info("node unexported", "node", name, "slot", "list")
		s.renderer.RenderSeries(s.Snapshot())
	}
}

// Contains reports whether the named Node is exported.
func (s *Sink) Contains(name string) bool {
	return s.log == name || slices.Contains(s.members, name)
}

// Push forwards a fresh result. List members re-render the full keyed
// mapping; the log holder renders the plain value. Other names are ignored.
func (s *Sink) Push(name string, v value.Value) {
	switch {
	case s.log == name:
		s.renderer.RenderValue(name, v)
	case slices.Contains(s.members, name):
		s.values[name] = v
		s.renderer.RenderSeries(s.Snapshot())
	}
}

// Members returns the list members in export order.
func (s *Sink) Members() []string {
	return slices.Clone(s.members)
}

// LogHolder returns the log slot holder, if any.
func (s *Sink) LogHolder() (string, bool) {
	return s.log, s.log != ""
}

// Snapshot returns the keyed values of the list members in order.
func (s *Sink) Snapshot() []Entry {
	entries := make([]Entry, 0, len(s.members))
	for _, name := range s.members {
		entries = append(entries, Entry{Name: name, Value: s.values[name]})
	}
	return entries
}

func (s *Sink) removeMember(name string) bool {
	i := slices.Index(s.members, name)
	if i < 0 {
		return false
	}
	s.members = slices.Delete(s.members, i, i+1)
	delete(s.values, name)
	return true
}
