package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/mathgraph/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Node     string       // Node the assertion is about, if any
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, describe(event))
		}
	}
	return buf.String()
}

// describe renders an event on one line.
func describe(ev TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ev.Type, ev.Node)
	if ev.Param != "" {
		fmt.Fprintf(&b, ".%s", ev.Param)
	}
	if ev.Ref != "" {
		fmt.Fprintf(&b, " &%s", ev.Ref)
	}
	if ev.Value != nil {
		fmt.Fprintf(&b, " = %s", value.Format(ev.Value))
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " (%s)", ev.Error)
	}
	return b.String()
}

// key is the "type:node" form used by trace_order.
func (ev TraceEvent) key() string {
	return ev.Type + ":" + ev.Node
}

// matches reports whether ev satisfies the event filter of a.
// Empty filter fields match anything.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Type != a.Event {
		return false
	}
	if a.Node != "" && ev.Node != a.Node {
		return false
	}
	if a.Param != "" && ev.Param != a.Param {
		return false
	}
	if a.Ref != "" && ev.Ref != a.Ref {
		return false
	}
	return true
}

// assertTraceContains checks that some event matches the assertion.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matches(event, assertion) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Node:     assertion.Node,
		Expected: fmt.Sprintf("%s event on %q (param %q, ref %q)", assertion.Event, assertion.Node, assertion.Param, assertion.Ref),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that events appear in the given order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Events) && event.key() == assertion.Events[next] {
			next++
		}
	}
	if next == len(assertion.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("events in order: %v", assertion.Events),
		Actual:   fmt.Sprintf("%s not found after %v", assertion.Events[next], assertion.Events[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that matching events appear exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, assertion) {
			count++
		}
	}
	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Node:     assertion.Node,
			Expected: fmt.Sprintf("%d %s events on %q", *assertion.Count, assertion.Event, assertion.Node),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCompute checks a Node's final computed value.
func assertCompute(result *Result, assertion Assertion) error {
	want, err := value.FromNative(assertion.Expect)
	if err != nil {
		return fmt.Errorf("compute assertion on %q: %w", assertion.Node, err)
	}
	got, ok := result.State[assertion.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertCompute,
			Node:     assertion.Node,
			Expected: fmt.Sprintf("%s = %s", assertion.Node, value.Format(want)),
			Actual:   "node not found",
		}
	}
	if !value.Equal(want, got) {
		return &AssertionError{
			Type:     AssertCompute,
			Node:     assertion.Node,
			Expected: fmt.Sprintf("%s = %s", assertion.Node, value.Format(want)),
			Actual:   fmt.Sprintf("%s = %s", assertion.Node, value.Format(got)),
		}
	}
	return nil
}

// assertOutput checks the sink's members and log holder.
func assertOutput(result *Result, assertion Assertion) error {
	if !equalNames(assertion.Members, result.Members) || assertion.Log != result.Log {
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("members %v, log %q", assertion.Members, assertion.Log),
			Actual:   fmt.Sprintf("members %v, log %q", result.Members, result.Log),
		}
	}
	return nil
}

// assertReports checks the number of console reports, for one Node or all.
func assertReports(result *Result, assertion Assertion) error {
	count := 0
	if assertion.Node != "" {
		count = result.Reports[assertion.Node]
	} else {
		for _, n := range result.Reports {
			count += n
		}
	}
	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertReports,
			Node:     assertion.Node,
			Expected: fmt.Sprintf("%d reports for %q", *assertion.Count, assertion.Node),
			Actual:   fmt.Sprintf("%d reports", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CheckAssertions runs all assertions against a result. Failed
// assertions are *AssertionError; malformed ones are plain errors.
func CheckAssertions(result *Result, assertions []Assertion) []error {
	var errs []error

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: trace_count requires count", i)
			} else {
				err = assertTraceCount(result.Trace, assertion)
			}
		case AssertCompute:
			err = assertCompute(result, assertion)
		case AssertOutput:
			err = assertOutput(result, assertion)
		case AssertReports:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: reports requires count", i)
			} else {
				err = assertReports(result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// EvaluateAssertions runs all assertions against a result.
// Returns a list of error messages (empty if all assertions pass).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for _, err := range CheckAssertions(result, assertions) {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
