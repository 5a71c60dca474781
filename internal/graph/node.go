package graph

import (
	"maps"

	"github.com/roach88/mathgraph/internal/value"
)

// Node is a graph entity wrapping one named value, its argument bindings
// and a single outbound connection.
//
// A *Node is a handle into the Graph's arena. After a rebuild or delete the
// handle is stale; mutators resolve the live Node by name and report
// ErrUnknownNode once the name is gone.
type Node struct {
	g *Graph

	name      string
	raw       value.Value
	invocable bool
	spec      value.ArgSpec
	class     value.Class

	args   *slots // positional parameters, declaration order
	kwargs *slots // keyword parameters (or the "value" pseudo-parameter)

	conn    Connection
	options map[string]string

	cached    value.Value
	hasCached bool

	// snapshots holds the last value seen through each Reference binding,
	// used as the literal fallback when the Reference is unbound.
	snapshots map[string]value.Value

	// bound marks slots the caller set; the rest hold their empty binding.
	bound map[string]bool
}

func newNode(g *Graph, name string, v value.Value) *Node {
	if v == nil {
		v = value.Null{}
	}
	_, invocable := v.(*value.Func)
	spec := value.SpecOf(v)

	n := &Node{
		g:         g,
		name:      name,
		raw:       v,
		invocable: invocable,
		spec:      spec,
		class:     value.ClassOf(v),
		args:      newSlots(spec.Positional),
		kwargs:    newSlots(nil),
		options:   make(map[string]string),
		snapshots: make(map[string]value.Value),
		bound:     make(map[string]bool),
	}
	for _, p := range spec.Keyword {
		n.kwargs.set(p.Name, Literal(p.Default))
	}
	return n
}

// Name returns the Node's unique key.
func (n *Node) Name() string { return n.name }

// Value returns the raw value the Node wraps: a literal or a *value.Func.
func (n *Node) Value() value.Value { return n.raw }

// IsInvocable reports whether the Node wraps a function.
func (n *Node) IsInvocable() bool { return n.invocable }

// ArgSpec returns the Node's parameter shape.
func (n *Node) ArgSpec() value.ArgSpec { return n.spec }

// Class returns the display class of the raw value.
func (n *Node) Class() value.Class { return n.class }

// Connection returns the outbound connection and whether it is set.
func (n *Node) Connection() (Connection, bool) {
	return n.conn, !n.conn.IsZero()
}

// Cached returns the last successfully computed value, if any.
func (n *Node) Cached() (value.Value, bool) {
	return n.cached, n.hasCached
}

// Args returns the positional bindings in declaration order.
func (n *Node) Args() []Param { return n.args.list() }

// Kwargs returns the keyword bindings in declaration order.
func (n *Node) Kwargs() []Param { return n.kwargs.list() }

// Binding returns the binding at key.
func (n *Node) Binding(key string) (Binding, bool) {
	if n.args.has(key) {
		return n.args.get(key), true
	}
	if n.kwargs.has(key) {
		return n.kwargs.get(key), true
	}
	return Unbound, false
}

// Options returns a copy of the display flags.
func (n *Node) Options() map[string]string {
	return maps.Clone(n.options)
}

// Option returns one display flag.
func (n *Node) Option(key string) (string, bool) {
	v, ok := n.options[key]
	return v, ok
}

// SetOption sets a display flag. Flags survive rebuilds.
func (n *Node) SetOption(key, val string) {
	if live, err := n.live(); err == nil {
		live.options[key] = val
	}
}

// Compute returns the Node's current output.
//
// Non-invocable Nodes return their value. Invocable Nodes return the
// function itself while any positional parameter is unbound; otherwise they
// resolve every binding (Reference ⇒ the target's Compute) and invoke. A
// failed invocation returns the last good value and is reported to the
// Console; Compute never fails.
func (n *Node) Compute() value.Value {
	live, err := n.live()
	if err != nil {
		return n.fallback()
	}
	v, err := live.evaluate()
	if err != nil {
		live.g.report(live.name, err)
		return live.fallback()
	}
	return v
}

// SetValue replaces the wrapped value.
//
// A non-invocable Node whose new value coerces into its display class with
// the same argument shape is updated in place; anything else rebuilds the
// Node through the Graph.
func (n *Node) SetValue(v value.Value) error {
	live, err := n.live()
	if err != nil {
		return err
	}
	if v == nil {
		v = value.Null{}
	}
	if !live.invocable {
		live.dropReference(value.ValueParam)
		return live.assignValue(v)
	}
	return live.g.rebuild(live, v)
}

// SetArg binds key to b and propagates the fresh result.
//
// A Reference moves the target's connection onto (this Node, key); the
// binding it replaces, if also a Reference, is disconnected first. Unbinding
// a Reference falls back to the last value seen through it. Direct
// self-reference is rejected.
func (n *Node) SetArg(key string, b Binding) error {
	live, err := n.live()
	if err != nil {
		return err
	}
	return live.setArg(key, b)
}

// DisconnectOutbound clears the Node's connection and resets the consumer's
// binding at that key to unbound.
func (n *Node) DisconnectOutbound() {
	if live, err := n.live(); err == nil {
		live.disconnectOutbound()
	}
}

func (n *Node) setArg(key string, b Binding) error {
	if !n.hasParam(key) {
		return unknownParam(n.name, key)
	}
	prev := n.binding(key)

	switch b.Kind {
	case KindReference:
		if b.Ref == n.name {
			return selfReference(n.name, key)
		}
		target, ok := n.g.nodes[b.Ref]
		if !ok {
			e := unknownNode(b.Ref)
			e.Param = key
			return e
		}
		if prev.IsReference() && prev.Ref != b.Ref {
			n.g.release(prev.Ref, n.name, key)
		}
		want := Connection{Consumer: n.name, Param: key}
		if !target.conn.IsZero() && target.conn != want {
			target.disconnectOutbound()
		}
		n.snapshots[key] = target.Compute()
		target.conn = want
		n.setSlot(key, b)
		n.bound[key] = true
		n.g.emit(Event{Type: EventConnect, Node: n.name, Param: key, Ref: target.name})

	case KindUnbound:
		if !prev.IsReference() {
			n.setSlot(key, n.emptyBinding(key))
			delete(n.bound, key)
			break
		}
		snap := n.snapshots[key]
		n.dropReference(key)
		if snap == nil {
			n.setSlot(key, n.emptyBinding(key))
			delete(n.bound, key)
			break
		}
		if !n.invocable && key == value.ValueParam {
			return n.assignValue(snap)
		}
		n.setSlot(key, Literal(snap))
		n.bound[key] = true

	case KindLiteral:
		n.dropReference(key)
		if !n.invocable && key == value.ValueParam {
			return n.assignValue(b.Value)
		}
		n.setSlot(key, b)
		n.bound[key] = true
	}

	n.g.emit(Event{Type: EventBind, Node: n.name, Param: key, Ref: b.Ref, Value: b.Value})
	n.refresh()
	return nil
}

// assignValue is the cheap in-place path of SetValue; it falls back to a
// rebuild when the value does not fit the Node's current shape.
func (n *Node) assignValue(v value.Value) error {
	coerced, ok := n.compatible(v)
	if !ok {
		return n.g.rebuild(n, v)
	}
	n.raw = coerced
	n.kwargs.set(value.ValueParam, Literal(coerced))
	n.g.store.Put(n.name, coerced)
	n.g.emit(Event{Type: EventUpdate, Node: n.name, Value: coerced})
	n.refresh()
	return nil
}

// compatible reports whether v can replace the raw value in place, and
// returns v coerced into the Node's display class.
func (n *Node) compatible(v value.Value) (value.Value, bool) {
	if n.invocable || value.ClassOf(v) == value.ClassInvocable {
		return nil, false
	}
	coerced, err := value.Coerce(v, n.class)
	if err != nil {
		n.g.logger.Debug("coercion failed, rebuilding", "node", n.name, "error", err)
		return nil, false
	}
	if !value.SpecOf(coerced).SameShape(n.spec) {
		return nil, false
	}
	return coerced, true
}

// dropReference disconnects a Reference bound at key, if any, and forgets
// its snapshot. The slot itself is left for the caller to overwrite.
func (n *Node) dropReference(key string) {
	prev := n.binding(key)
	if prev.IsReference() {
		n.g.release(prev.Ref, n.name, key)
		n.setSlot(key, n.emptyBinding(key))
	}
	delete(n.snapshots, key)
}

func (n *Node) disconnectOutbound() {
	if n.conn.IsZero() {
		return
	}
	conn := n.conn
	n.conn = Connection{}
	n.g.emit(Event{Type: EventDisconnect, Node: n.name, Param: conn.Param, Ref: conn.Consumer})

	consumer, ok := n.g.nodes[conn.Consumer]
	if !ok {
		return
	}
	b := consumer.binding(conn.Param)
	if !b.IsReference() || b.Ref != n.name {
		return
	}
	delete(consumer.snapshots, conn.Param)
	delete(consumer.bound, conn.Param)
	consumer.setSlot(conn.Param, consumer.emptyBinding(conn.Param))
	consumer.refresh()
}

// detach severs every edge: the outbound connection (resetting the
// consumer) and the connection of every Node this one references.
func (n *Node) detach() {
	n.disconnectOutbound()
	for _, p := range append(n.args.list(), n.kwargs.list()...) {
		if p.Binding.IsReference() {
			n.g.release(p.Binding.Ref, n.name, p.Key)
		}
	}
}

func (n *Node) evaluate() (value.Value, error) {
	if err := n.g.guard.enter(n.name); err != nil {
		return nil, err
	}
	defer n.g.guard.leave(n.name)

	if !n.invocable {
		if b := n.kwargs.get(value.ValueParam); b.IsReference() {
			return n.resolve(b)
		}
		return n.raw, nil
	}

	for _, key := range n.spec.Positional {
		if !n.args.get(key).IsBound() {
			return n.raw, nil
		}
	}

	args := make([]value.Value, 0, len(n.spec.Positional))
	for _, key := range n.spec.Positional {
		v, err := n.resolve(n.args.get(key))
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	kwargs := make(map[string]value.Value, len(n.spec.Keyword))
	for _, p := range n.spec.Keyword {
		b := n.kwargs.get(p.Name)
		if !b.IsBound() {
			kwargs[p.Name] = Literal(p.Default).Value
			continue
		}
		v, err := n.resolve(b)
		if err != nil {
			return nil, err
		}
		kwargs[p.Name] = v
	}

	result, err := n.raw.(*value.Func).Call(args, kwargs)
	if err != nil {
		return nil, invocationError(n.name, err)
	}
	return result, nil
}

func (n *Node) resolve(b Binding) (value.Value, error) {
	switch b.Kind {
	case KindLiteral:
		return b.Value, nil
	case KindReference:
		target, ok := n.g.nodes[b.Ref]
		if !ok {
			return nil, unknownNode(b.Ref)
		}
		return target.Compute(), nil
	default:
		return value.Null{}, nil
	}
}

// refresh recomputes the Node, caches the result, notifies the consumer and
// pushes to the sink. It starts a new propagation walk.
func (n *Node) refresh() {
	n.propagate(make(map[string]bool))
}

func (n *Node) propagate(visited map[string]bool) {
	visited[n.name] = true

	v, err := n.evaluate()
	if err != nil {
		n.g.report(n.name, err)
		v = n.fallback()
	} else {
		n.cached = v
		n.hasCached = true
	}
	n.g.emit(Event{Type: EventRefresh, Node: n.name, Value: v})

	if !n.conn.IsZero() {
		if consumer, ok := n.g.nodes[n.conn.Consumer]; ok {
			if visited[consumer.name] {
				n.g.report(consumer.name, cycleError(consumer.name))
			} else {
				n.g.logger.Debug("propagating", "from", n.name, "to", consumer.name, "param", n.conn.Param)
				consumer.snapshots[n.conn.Param] = v
				consumer.propagate(visited)
			}
		}
	}

	if n.g.sink != nil && n.g.sink.Contains(n.name) {
		n.g.sink.Push(n.name, v)
	}
}

func (n *Node) fallback() value.Value {
	if n.hasCached {
		return n.cached
	}
	return n.raw
}

func (n *Node) live() (*Node, error) {
	cur, ok := n.g.nodes[n.name]
	if !ok {
		return nil, unknownNode(n.name)
	}
	return cur, nil
}

// isBound reports whether the caller set key, as opposed to the slot
// holding its declared default.
func (n *Node) isBound(key string) bool {
	return n.bound[key]
}

func (n *Node) hasParam(key string) bool {
	return n.args.has(key) || n.kwargs.has(key)
}

func (n *Node) binding(key string) Binding {
	if n.args.has(key) {
		return n.args.get(key)
	}
	return n.kwargs.get(key)
}

func (n *Node) setSlot(key string, b Binding) {
	if n.args.has(key) {
		n.args.set(key, b)
		return
	}
	n.kwargs.set(key, b)
}

// emptyBinding is what a slot holds when nothing is bound: absent for
// positional parameters, the declared default for keyword parameters and
// the wrapped value for the "value" pseudo-parameter.
func (n *Node) emptyBinding(key string) Binding {
	if !n.invocable && key == value.ValueParam {
		return Literal(n.raw)
	}
	for _, p := range n.spec.Keyword {
		if p.Name == key {
			return Literal(p.Default)
		}
	}
	return Unbound
}
