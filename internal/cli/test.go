package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mathgraph/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// Golden file states of a scenario.
const (
	GoldenNone     = "none"
	GoldenMatch    = "match"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// AssertionFailure is one failed assertion, named by the Node it checks.
type AssertionFailure struct {
	Type     string `json:"type"`
	Node     string `json:"node,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// TraceDiff is the first event where a trace departs from its golden file.
// An empty side means that trace ended first.
type TraceDiff struct {
	Index  int    `json:"index"`
	Golden string `json:"golden,omitempty"`
	Actual string `json:"actual,omitempty"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name     string             `json:"name"`
	Pass     bool               `json:"pass"`
	Nodes    int                `json:"nodes"`
	Events   int                `json:"events"`
	Reports  int                `json:"reports"`
	Golden   string             `json:"golden"`
	Failures []AssertionFailure `json:"failures,omitempty"`
	Diff     *TraceDiff         `json:"diff,omitempty"`
	Errors   []string           `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run graph scenarios",
		Long: `Run graph scenarios using the harness framework.

Executes every scenario file in the directory against a fresh graph and
checks its assertions. A failed compute, output or reports assertion is
shown with its node and the expected and actual values. When a golden file
exists under <scenarios-dir>/golden the trace must match it; a mismatch
shows the first event that differs.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  mathgraph test ./scenarios
  mathgraph test ./scenarios --filter "animate_*"
  mathgraph test ./scenarios --update
  mathgraph test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, path := range files {
		formatter.VerboseLog("Running %s", path)
		sr := runScenario(path, opts.Update)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if result.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
		return formatter.Fail(ExitFailure, ErrCodeScenario, msg, result)
	}
	return formatter.Success(result)
}

// findScenarioFiles lists the YAML scenarios under dir. Golden files and
// the documents scenarios refer to live in golden/ and graphs/ beside them.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (d.Name() == "golden" || d.Name() == "graphs") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario runs one scenario file and checks or rewrites its golden
// trace.
func runScenario(path string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: scenarioName(path), Golden: GoldenNone}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("load: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("run: %v", err)}
		return sr
	}
	sr.Nodes = len(result.State)
	sr.Events = len(result.Trace)
	for _, n := range result.Reports {
		sr.Reports += n
	}
	sr.Failures, sr.Errors = splitErrors(result)

	trace, err := harness.MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("trace: %v", err))
		return sr
	}

	golden := goldenFilePath(path)
	switch {
	case update:
		if err := writeGolden(golden, trace); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = GoldenUpdated
	default:
		want, err := os.ReadFile(golden)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("golden: %v", err))
			return sr
		}
		sr.Golden = GoldenMatch
		if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(trace)) {
			sr.Golden = GoldenMismatch
			sr.Diff = diffTraces(want, trace)
		}
	}

	sr.Pass = result.Pass && len(sr.Errors) == 0 && sr.Golden != GoldenMismatch
	return sr
}

// splitErrors separates failed assertions from the other errors of a run
// (flow step mismatches and malformed assertions).
func splitErrors(result *harness.Result) ([]AssertionFailure, []string) {
	failed := make(map[string]bool, len(result.Failures))
	var failures []AssertionFailure
	for _, f := range result.Failures {
		failed[f.Error()] = true
		failures = append(failures, AssertionFailure{
			Type:     f.Type,
			Node:     f.Node,
			Expected: f.Expected,
			Actual:   f.Actual,
		})
	}
	var other []string
	for _, e := range result.Errors {
		if !failed[e] {
			other = append(other, e)
		}
	}
	return failures, other
}

func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioName(scenarioFile)+".golden")
}

func writeGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("golden: %w", err)
	}
	if err := os.WriteFile(path, trace, 0644); err != nil {
		return fmt.Errorf("golden: %w", err)
	}
	return nil
}

// goldenEvent is the on-disk form of one trace event.
type goldenEvent struct {
	Seq   int64           `json:"seq"`
	Type  string          `json:"type"`
	Node  string          `json:"node"`
	Param string          `json:"param"`
	Ref   string          `json:"ref"`
	Value json.RawMessage `json:"value"`
	Error string          `json:"error"`
}

func (ev goldenEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s %s", ev.Seq, ev.Type, ev.Node)
	if ev.Param != "" {
		fmt.Fprintf(&b, ".%s", ev.Param)
	}
	if ev.Ref != "" {
		fmt.Fprintf(&b, " &%s", ev.Ref)
	}
	if len(ev.Value) > 0 {
		fmt.Fprintf(&b, " = %s", ev.Value)
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " (%s)", ev.Error)
	}
	return b.String()
}

// diffTraces finds the first differing event of two marshalled traces.
// A golden file that is not a trace differs at its first event.
func diffTraces(want, got []byte) *TraceDiff {
	var w, g struct {
		Trace []json.RawMessage `json:"trace"`
	}
	_ = json.Unmarshal(want, &w)
	_ = json.Unmarshal(got, &g)

	for i := 0; i < len(w.Trace) || i < len(g.Trace); i++ {
		var ws, gs string
		if i < len(w.Trace) {
			ws = describeRaw(w.Trace[i])
		}
		if i < len(g.Trace) {
			gs = describeRaw(g.Trace[i])
		}
		if ws != gs {
			return &TraceDiff{Index: i, Golden: ws, Actual: gs}
		}
	}
	// Same events, different envelope (scenario name or formatting).
	return &TraceDiff{Index: len(g.Trace)}
}

func describeRaw(raw json.RawMessage) string {
	var ev goldenEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return string(raw)
	}
	return ev.String()
}

func (r TestResult) writeText(w io.Writer) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range r.Scenarios {
		sr.writeText(w)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}

func (sr ScenarioResult) writeText(w io.Writer) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s  %d node(s), %d event(s)", mark, sr.Name, sr.Nodes, sr.Events)
	if sr.Reports > 0 {
		fmt.Fprintf(w, ", %d report(s)", sr.Reports)
	}
	if sr.Golden != GoldenNone {
		fmt.Fprintf(w, ", golden %s", sr.Golden)
	}
	fmt.Fprintln(w)

	for _, f := range sr.Failures {
		label := f.Type
		if f.Node != "" {
			label += " " + f.Node
		}
		fmt.Fprintf(w, "  %s: expected %s, got %s\n", label, f.Expected, f.Actual)
	}
	if sr.Diff != nil {
		fmt.Fprintf(w, "  golden trace differs at event %d (run with --update to regenerate)\n", sr.Diff.Index+1)
		fmt.Fprintf(w, "    want %s\n", orEnd(sr.Diff.Golden))
		fmt.Fprintf(w, "    got  %s\n", orEnd(sr.Diff.Actual))
	}
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func orEnd(s string) string {
	if s == "" {
		return "(end of trace)"
	}
	return s
}
