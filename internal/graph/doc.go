// Package graph implements the mathgraph reactive dataflow engine.
//
// Every live value is a Node. A Node's parameters are bound either to a
// literal value or to a Reference naming another Node; writing to a Node
// propagates its fresh result through the graph synchronously.
//
// ARCHITECTURE:
//
// Arena of names:
// The Graph owns every Node in one table keyed by name. All cross links are
// by name (a Binding's Reference, a Node's outbound Connection), never by
// pointer, so deletion cannot leave a dangling link. A lookup miss means the
// Node is already gone.
//
// Symmetric links:
// If X's binding at k is Reference(Y) then Y's connection is (X, k). Every
// mutation (SetArg, DisconnectOutbound, Delete, rebuild) maintains both
// halves. A Node feeds at most one consumer; binding it elsewhere moves the
// connection.
//
// Propagation:
// SetArg and SetValue recompute the Node, then notify its consumer
// depth-first and push the fresh result to the output sink. There is no
// batching: a long chain recomputes fully on every upstream write.
//
// Re-typing:
// Graph.Create takes a cheap in-place path when the new value is coercible
// into the old display class with the same argument shape, and rebuilds the
// Node otherwise (bindings, connection and options are replayed).
//
// Failure:
// An invocable that fails leaves the Node showing its last good value; the
// failure goes to the Console, never to the caller of Compute.
//
// Cycles:
// Compute tracks the Nodes on the current evaluation stack and propagation
// tracks the Nodes visited by the current walk. Re-entry stops the walk and
// reports ErrCycle to the Console instead of exhausting the stack.
//
// The graph is single-writer and holds no locks. Hosts that mutate it from
// timers must funnel those writes through one goroutine (see animate.Loop).
package graph
