package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/value"
)

func intPtr(n int) *int { return &n }

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Type: "create", Node: "a", Value: value.Int(2)},
		{Seq: 2, Type: "create", Node: "b"},
		{Seq: 3, Type: "connect", Node: "b", Param: "x", Ref: "a"},
		{Seq: 4, Type: "refresh", Node: "b", Value: value.Int(2)},
		{Seq: 5, Type: "update", Node: "a", Value: value.Int(3)},
		{Seq: 6, Type: "refresh", Node: "b", Value: value.Int(3)},
		{Seq: 7, Type: EventReport, Node: "b", Error: "boom"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Event: "connect", Node: "b", Param: "x", Ref: "a"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Event: "update"}))

	err := assertTraceContains(trace, Assertion{Type: AssertTraceContains, Event: "connect", Ref: "c"})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "not found in trace", ae.Actual)
	assert.Contains(t, ae.Error(), "[3] connect b.x &a")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"create:a", "connect:b", "update:a", "refresh:b"}}))

	err := assertTraceOrder(trace, Assertion{Events: []string{"update:a", "create:b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create:b not found after [update:a]")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "refresh", Node: "b", Count: intPtr(2)}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "delete", Count: intPtr(0)}))

	err := assertTraceCount(trace, Assertion{Event: "refresh", Count: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertCompute(t *testing.T) {
	result := NewResult()
	result.State["y"] = value.Float(2)

	assert.NoError(t, assertCompute(result, Assertion{Node: "y", Expect: 2}), "numeric equality crosses Int and Float")

	err := assertCompute(result, Assertion{Node: "y", Expect: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "y = 3")

	err = assertCompute(result, Assertion{Node: "ghost", Expect: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found")
}

func TestAssertOutput(t *testing.T) {
	result := NewResult()
	result.Members = []string{"xs", "ys"}
	result.Log = "total"

	assert.NoError(t, assertOutput(result, Assertion{Members: []string{"xs", "ys"}, Log: "total"}))
	assert.Error(t, assertOutput(result, Assertion{Members: []string{"ys", "xs"}, Log: "total"}))
	assert.Error(t, assertOutput(result, Assertion{Members: []string{"xs", "ys"}}))
}

func TestAssertReports(t *testing.T) {
	result := NewResult()
	result.AddReport(1, "b", assert.AnError)
	result.AddReport(2, "b", assert.AnError)
	result.AddReport(3, "c", assert.AnError)

	assert.NoError(t, assertReports(result, Assertion{Node: "b", Count: intPtr(2)}))
	assert.NoError(t, assertReports(result, Assertion{Count: intPtr(3)}))
	assert.Error(t, assertReports(result, Assertion{Node: "c", Count: intPtr(0)}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.State["a"] = value.Int(3)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Event: "update", Node: "a"},
		{Type: AssertCompute, Node: "a", Expect: 3},
		{Type: AssertTraceCount, Event: "update"},
		{Type: "mystery"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count requires count")
	assert.Contains(t, errs[1], `unknown assertion type "mystery"`)
}
