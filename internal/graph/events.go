package graph

import "github.com/roach88/mathgraph/internal/value"

// EventType distinguishes graph events.
type EventType string

const (
	EventCreate     EventType = "create"
	EventUpdate     EventType = "update"
	EventRebuild    EventType = "rebuild"
	EventDelete     EventType = "delete"
	EventBind       EventType = "bind"
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventRefresh    EventType = "refresh"
)

// Event describes one structural change or recomputation. Observers
// receive events synchronously, in seq order.
type Event struct {
	Seq   int64
	Type  EventType
	Node  string
	Param string
	Ref   string
	Value value.Value
}

// Observer receives graph events.
type Observer func(Event)

func (g *Graph) emit(ev Event) {
	ev.Seq = g.clock.Next()
	for _, obs := range g.observers {
		obs(ev)
	}
}
