package graph

import (
	"fmt"
	"log/slog"

	"github.com/roach88/mathgraph/internal/reactive"
	"github.com/roach88/mathgraph/internal/value"
)

// Sink is the output subsystem a Graph pushes fresh results to.
// Implemented by output.Sink.
type Sink interface {
	// Connect exports the Node to the renderer.
	Connect(n *Node)
	// Disconnect stops exporting the named Node.
	Disconnect(name string)
	// Contains reports whether the named Node is exported.
	Contains(name string) bool
	// Push forwards a fresh result for an exported Node.
	Push(name string, v value.Value)
}

// Graph owns every Node keyed by name.
//
// The Graph is a reactive.Store whose hooks implement the Node lifecycle:
// writing a name creates or updates its Node, deleting a name cascades
// through every link, and reading a name computes its Node.
//
// Thread-safety: none. All calls must come from one goroutine.
type Graph struct {
	store     *reactive.Store
	nodes     map[string]*Node
	sink      Sink
	console   Console
	logger    *slog.Logger
	clock     *Clock
	guard     *cycleGuard
	observers []Observer
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithConsole sets where recovered failures are reported.
// Default: SlogConsole on the graph's logger.
func WithConsole(c Console) Option {
	return func(g *Graph) {
		g.console = c
	}
}

// WithSink attaches the output sink.
func WithSink(s Sink) Option {
	return func(g *Graph) {
		g.sink = s
	}
}

// WithMaxDepth bounds nested evaluation through Reference chains.
//
// Default: 1000 (DefaultMaxDepth).
func WithMaxDepth(depth int) Option {
	return func(g *Graph) {
		g.guard = newCycleGuard(depth)
	}
}

// WithObserver registers an event observer. Observers run synchronously.
func WithObserver(obs Observer) Option {
	return func(g *Graph) {
		g.observers = append(g.observers, obs)
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(c *Clock) Option {
	return func(g *Graph) {
		g.clock = c
	}
}

// New creates an empty Graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		logger: slog.Default(),
		clock:  NewClock(),
		guard:  newCycleGuard(DefaultMaxDepth),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.console == nil {
		g.console = SlogConsole{Logger: g.logger}
	}
	g.store = reactive.New(reactive.Hooks{
		Get:    g.onGet,
		Set:    g.onSet,
		Delete: g.onDelete,
	})
	return g
}

// Store returns the backing reactive store. Writes through it behave
// exactly like Create and Delete.
func (g *Graph) Store() *reactive.Store {
	return g.store
}

// SetSink attaches (or with nil, detaches) the output sink.
func (g *Graph) SetSink(s Sink) {
	g.sink = s
}

// Sink returns the attached output sink, if any.
func (g *Graph) Sink() Sink {
	return g.sink
}

// Clock returns the logical clock stamping events.
func (g *Graph) Clock() *Clock {
	return g.clock
}

// Create writes value under name.
//
// A new name creates a Node. For an existing Node a compatible value takes
// the cheap in-place path; anything else rebuilds the Node, replaying its
// bindings, connection and options.
func (g *Graph) Create(name string, v value.Value) (*Node, error) {
	if name == "" {
		return nil, &Error{Code: ErrCodeInvalidName, Err: ErrInvalidName}
	}
	if err := g.store.Set(name, v); err != nil {
		return nil, err
	}
	return g.nodes[name], nil
}

// Delete removes the named Node. Its consumer's binding is reset, every
// Node it referenced loses its connection, and it leaves the output sink.
func (g *Graph) Delete(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return unknownNode(name)
	}
	return g.store.Delete(name)
}

// Node returns the named Node.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Has reports whether name exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Names returns every Node name in creation order.
func (g *Graph) Names() []string {
	return g.store.Keys()
}

// Len returns the number of Nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// SetArg binds a parameter of the named Node.
func (g *Graph) SetArg(name, key string, b Binding) error {
	n, ok := g.nodes[name]
	if !ok {
		return unknownNode(name)
	}
	return n.setArg(key, b)
}

// SetValue replaces the value of the named Node.
func (g *Graph) SetValue(name string, v value.Value) error {
	n, ok := g.nodes[name]
	if !ok {
		return unknownNode(name)
	}
	return n.SetValue(v)
}

// Compute returns the current output of the named Node.
func (g *Graph) Compute(name string) (value.Value, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, unknownNode(name)
	}
	return n.Compute(), nil
}

// UniqueName returns base if unused, else the first unused base_2, base_3,
// and so on.
func (g *Graph) UniqueName(base string) string {
	if !g.Has(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !g.Has(candidate) {
			return candidate
		}
	}
}

func (g *Graph) onGet(name string, stored value.Value, ok bool) (value.Value, bool) {
	n, exists := g.nodes[name]
	if !exists {
		return stored, ok
	}
	return n.Compute(), true
}

func (g *Graph) onSet(name string, v value.Value) error {
	if v == nil {
		v = value.Null{}
	}
	n, exists := g.nodes[name]
	if exists {
		if err := n.SetValue(v); err != nil {
			return err
		}
		return reactive.Veto
	}

	n = newNode(g, name, v)
	g.nodes[name] = n
	g.store.Put(name, v)
	g.logger.Info("node created", "node", name, "class", n.class.String(), "invocable", n.invocable)
	g.emit(Event{Type: EventCreate, Node: name, Value: v})
	n.refresh()
	return reactive.Veto
}

func (g *Graph) onDelete(name string) error {
	n, ok := g.nodes[name]
	if !ok {
		return unknownNode(name)
	}
	n.detach()
	if g.sink != nil {
		g.sink.Disconnect(name)
	}
	delete(g.nodes, name)
	g.logger.Info("node deleted", "node", name)
	g.emit(Event{Type: EventDelete, Node: name})
	return nil
}

// rebuild destroys old and constructs a new Node under the same name,
// replaying bindings, then connection, then options.
func (g *Graph) rebuild(old *Node, v value.Value) error {
	name := old.name
	bindings := append(old.args.list(), old.kwargs.list()...)
	conn := old.conn
	options := old.options
	inSink := g.sink != nil && g.sink.Contains(name)

	g.logger.Info("rebuilding node",
		"node", name,
		"from", old.class.String(),
		"to", value.ClassOf(v).String(),
	)

	if inSink {
		g.sink.Disconnect(name)
	}
	old.detach()

	n := newNode(g, name, v)
	n.options = options
	g.nodes[name] = n
	g.store.Put(name, v)
	g.emit(Event{Type: EventRebuild, Node: name, Value: v})

	for _, p := range bindings {
		if !p.Binding.IsBound() || !old.isBound(p.Key) || !n.hasParam(p.Key) {
			continue
		}
		if !n.invocable && p.Key == value.ValueParam {
			continue
		}
		if err := n.setArg(p.Key, p.Binding); err != nil {
			g.logger.Warn("dropping binding on rebuild",
				"node", name,
				"param", p.Key,
				"binding", p.Binding.String(),
				"error", err,
			)
		}
	}

	if !conn.IsZero() {
		if consumer, ok := g.nodes[conn.Consumer]; ok {
			if err := consumer.setArg(conn.Param, Reference(name)); err != nil {
				g.logger.Warn("dropping connection on rebuild",
					"node", name,
					"connection", conn.String(),
					"error", err,
				)
			}
		}
	}

	n.refresh()
	if inSink {
		g.sink.Connect(n)
	}
	return nil
}

// release clears target's connection if it still points at (consumer, key).
func (g *Graph) release(target, consumer, key string) {
	t, ok := g.nodes[target]
	if !ok {
		return
	}
	if t.conn.Consumer == consumer && t.conn.Param == key {
		t.conn = Connection{}
		g.emit(Event{Type: EventDisconnect, Node: target, Param: key, Ref: consumer})
	}
}

func (g *Graph) report(name string, err error) {
	g.logger.Debug("reporting failure", "node", name, "error", err)
	g.console.Report(name, err)
}
