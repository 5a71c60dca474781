package harness

import (
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// TraceEvent is one graph event or console report in the trace.
type TraceEvent struct {
	Seq   int64       `json:"seq"`
	Type  string      `json:"type"` // a graph event type, or "report"
	Node  string      `json:"node"`
	Param string      `json:"param,omitempty"`
	Ref   string      `json:"ref,omitempty"`
	Value value.Value `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

// EventReport marks console reports in the trace.
const EventReport = "report"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every graph event and console report in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures holds the failed assertions among Errors, with their Node
	// and expected and actual values.
	Failures []*AssertionError `json:"-"`

	// State maps every Node to its final computed value.
	State map[string]value.Value `json:"state,omitempty"`

	// Members and Log are the final output sink contents.
	Members []string `json:"members,omitempty"`
	Log     string   `json:"log,omitempty"`

	// Reports counts console reports per Node.
	Reports map[string]int `json:"reports,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		State:   make(map[string]value.Value),
		Reports: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a graph event to the trace.
func (r *Result) AddEvent(ev graph.Event) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   ev.Seq,
		Type:  string(ev.Type),
		Node:  ev.Node,
		Param: ev.Param,
		Ref:   ev.Ref,
		Value: ev.Value,
	})
}

// AddReport appends a console report to the trace. Reports share the
// graph's seq so they interleave with events.
func (r *Result) AddReport(seq int64, node string, err error) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   seq,
		Type:  EventReport,
		Node:  node,
		Error: err.Error(),
	})
	r.Reports[node]++
}
