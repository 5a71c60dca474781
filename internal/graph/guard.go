package graph

// DefaultMaxDepth bounds nested evaluation through Reference chains.
const DefaultMaxDepth = 1000

// cycleGuard tracks the Nodes on the current evaluation stack.
//
// A binding cycle such as X.a = &Y, Y.a = &X would otherwise recurse until
// the goroutine stack is exhausted. The guard turns re-entry into an
// ErrCycle report and a fallback value.
//
// Propagation uses a separate visited set per walk (see Node.refresh) so
// that two independent walks never share state.
type cycleGuard struct {
	active   map[string]bool
	depth    int
	maxDepth int
}

func newCycleGuard(maxDepth int) *cycleGuard {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &cycleGuard{
		active:   make(map[string]bool),
		maxDepth: maxDepth,
	}
}

// enter marks name as being evaluated. It returns a non-nil error if name is
// already on the stack or the stack is too deep; otherwise the caller must
// call leave(name) when done.
func (c *cycleGuard) enter(name string) error {
	if c.active[name] {
		return cycleError(name)
	}
	if c.depth >= c.maxDepth {
		return depthError(name, c.maxDepth)
	}
	c.active[name] = true
	c.depth++
	return nil
}

func (c *cycleGuard) leave(name string) {
	delete(c.active, name)
	c.depth--
}

// evaluating reports whether name is on the stack.
func (c *cycleGuard) evaluating(name string) bool {
	return c.active[name]
}
