package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/mathgraph/internal/animate"
	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/output"
	"github.com/roach88/mathgraph/internal/sourcesync"
	"github.com/roach88/mathgraph/internal/testutil"
	"github.com/roach88/mathgraph/internal/value"
)

// maxTicks bounds how many timer callbacks one animate step may run.
const maxTicks = 10000

// Harness is the test execution engine.
// It runs one scenario against a fresh graph on a virtual clock.
type Harness struct {
	g      *graph.Graph
	sink   *output.Sink
	lib    *funcs.Library
	anim   *animate.Animator
	host   *testutil.ManualHost
	syncer *sourcesync.Syncer
	logger *slog.Logger
	result *Result
	source string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh graph with the builtin library, an
// output sink and an animator on a virtual clock, so traces are identical
// across runs.
//
// Execution flow:
// 1. Load the document, if any
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute flow steps, checking expect and fail clauses
// 4. Collect final values, sink contents and reports
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	result := NewResult()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		lib:    funcs.Builtins(),
		host:   testutil.NewManualHost(),
		logger: logger,
		result: result,
		source: scenario.Name + ".hcl",
	}
	h.sink = output.New(nil, output.WithLogger(logger))
	h.g = graph.New(
		graph.WithLogger(logger),
		graph.WithConsole(h),
		graph.WithSink(h.sink),
		graph.WithObserver(result.AddEvent),
	)
	h.anim = animate.New(h.g, animate.WithHost(h.host), animate.WithLogger(logger))
	h.syncer = sourcesync.New(h.g, h.lib, sourcesync.WithLogger(logger))

	if scenario.Document != "" {
		doc, err := document.ReadFile(scenario.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		if err := document.Apply(h.g, doc, h.lib); err != nil {
			return nil, fmt.Errorf("failed to apply document: %w", err)
		}
	}

	for i, step := range scenario.Setup {
		if err := h.apply(step); err != nil {
			return nil, fmt.Errorf("setup step %d (%s %s): %w", i, step.Op, step.Node, err)
		}
	}

	for i, step := range scenario.Flow {
		h.executeStep(i, step)
	}

	h.collect()

	for _, err := range CheckAssertions(result, scenario.Assertions) {
		var ae *AssertionError
		if errors.As(err, &ae) {
			result.Failures = append(result.Failures, ae)
		}
		result.AddError(err.Error())
	}
	return result, nil
}

// Report implements graph.Console.
func (h *Harness) Report(node string, err error) {
	h.result.AddReport(h.g.Clock().Next(), node, err)
}

// executeStep runs one flow step and records mismatches as errors.
func (h *Harness) executeStep(i int, step Step) {
	err := h.apply(step)
	switch {
	case step.Fail && err == nil:
		h.result.AddError(fmt.Sprintf("flow[%d] %s %s: expected an error", i, step.Op, step.Node))
		return
	case step.Fail:
		h.logger.Info("flow step failed as expected", "step", i, "op", step.Op, "error", err)
		return
	case err != nil:
		h.result.AddError(fmt.Sprintf("flow[%d] %s %s: %v", i, step.Op, step.Node, err))
		return
	}

	if step.Expect != nil {
		want, err := value.FromNative(step.Expect)
		if err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d].expect: %v", i, err))
			return
		}
		got, err := h.g.Compute(step.Node)
		if err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d].expect: %v", i, err))
			return
		}
		if !value.Equal(want, got) {
			h.result.AddError(fmt.Sprintf("flow[%d].expect: %s = %s, want %s",
				i, step.Node, value.Format(got), value.Format(want)))
		}
	}

	h.logger.Info("flow step completed", "step", i, "op", step.Op, "node", step.Node)
}

// apply performs a step's operation through the public graph API.
func (h *Harness) apply(step Step) error {
	switch step.Op {
	case OpCreate:
		v, err := h.stepValue(step)
		if err != nil {
			return err
		}
		_, err = h.g.Create(step.Node, v)
		return err

	case OpSetArg:
		if step.Ref != "" {
			return h.g.SetArg(step.Node, step.Param, graph.Reference(step.Ref))
		}
		v, err := value.FromNative(step.Value)
		if err != nil {
			return err
		}
		return h.g.SetArg(step.Node, step.Param, graph.Literal(v))

	case OpUnbind:
		return h.g.SetArg(step.Node, step.Param, graph.Unbound)

	case OpSetValue:
		v, err := h.stepValue(step)
		if err != nil {
			return err
		}
		return h.g.SetValue(step.Node, v)

	case OpDelete:
		return h.g.Delete(step.Node)

	case OpOutput:
		n, ok := h.g.Node(step.Node)
		if !ok {
			return fmt.Errorf("output %q: %w", step.Node, graph.ErrUnknownNode)
		}
		h.sink.Connect(n)
		return nil

	case OpAnimate:
		a := step.Animate
		if err := h.anim.Start(step.Node, step.Param, a.Start, a.Stop, a.Step, a.Delay); err != nil {
			return err
		}
		h.host.RunAll(maxTicks)
		if h.anim.Active() > 0 {
			return fmt.Errorf("animation of %s did not finish within %d ticks", step.Node, maxTicks)
		}
		return nil

	case OpSync:
		_, err := h.syncer.Apply(h.source, []byte(step.Source))
		return err
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// stepValue returns the library function named by Func, else the literal.
func (h *Harness) stepValue(step Step) (value.Value, error) {
	if step.Func != "" {
		f, err := h.lib.Get(step.Func)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return value.FromNative(step.Value)
}

// collect records final values and sink contents.
func (h *Harness) collect() {
	names := h.g.Names()
	sort.Strings(names)
	for _, name := range names {
		v, err := h.g.Compute(name)
		if err != nil {
			continue
		}
		h.result.State[name] = v
	}
	h.result.Members = h.sink.Members()
	if holder, ok := h.sink.LogHolder(); ok {
		h.result.Log = holder
	}
}
