package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a graph test scenario.
// Scenarios drive a graph through a flow of operations and assert on the
// resulting event trace, computed values and output sink.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is an optional graph document loaded before Setup.
	// Relative paths resolve from the scenario file.
	Document string `yaml:"document,omitempty"`

	// Setup contains operations that build the initial graph.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the operations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and graph state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one graph operation. Op selects which other fields apply.
type Step struct {
	// Op is one of create, set_arg, unbind, set_value, delete, output,
	// animate, sync.
	Op string `yaml:"op"`

	// Node is the target Node.
	Node string `yaml:"node,omitempty"`

	// Func names a library function (create).
	Func string `yaml:"func,omitempty"`

	// Value is a literal (create, set_arg, set_value).
	Value any `yaml:"value,omitempty"`

	// Param is the parameter to bind (set_arg, unbind, animate).
	Param string `yaml:"param,omitempty"`

	// Ref names the Node to reference (set_arg).
	Ref string `yaml:"ref,omitempty"`

	// Source is HCL applied with the source syncer (sync).
	Source string `yaml:"source,omitempty"`

	// Animate configures an animation (animate).
	Animate *AnimateStep `yaml:"animate,omitempty"`

	// Expect is the value Node must compute after the step, if set.
	Expect any `yaml:"expect,omitempty"`

	// Fail marks a step whose operation is expected to return an error.
	Fail bool `yaml:"fail,omitempty"`
}

// AnimateStep configures an animate operation. The animation runs to
// completion on a virtual clock before the next step.
type AnimateStep struct {
	Start float64       `yaml:"start"`
	Stop  float64       `yaml:"stop"`
	Step  float64       `yaml:"step"`
	Delay time.Duration `yaml:"delay,omitempty"`
}

// Step operations.
const (
	OpCreate   = "create"
	OpSetArg   = "set_arg"
	OpUnbind   = "unbind"
	OpSetValue = "set_value"
	OpDelete   = "delete"
	OpOutput   = "output"
	OpAnimate  = "animate"
	OpSync     = "sync"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with Event type, Node and optional Param/Ref
	// - "trace_order": events appear in order, each as "type:node"
	// - "trace_count": events of Event type on Node appear exactly Count times
	// - "compute": Node computes Expect
	// - "output": the output sink holds Members and Log
	// - "reports": the console received Count reports, for Node if set
	Type string `yaml:"type"`

	Event  string   `yaml:"event,omitempty"`
	Node   string   `yaml:"node,omitempty"`
	Param  string   `yaml:"param,omitempty"`
	Ref    string   `yaml:"ref,omitempty"`
	Events []string `yaml:"events,omitempty"`

	// Count is used by trace_count and reports. A pointer so that 0 can
	// be asserted explicitly.
	Count *int `yaml:"count,omitempty"`

	// Expect is the expected computed value (compute).
	Expect any `yaml:"expect,omitempty"`

	// Members and Log are the expected sink contents (output).
	Members []string `yaml:"members,omitempty"`
	Log     string   `yaml:"log,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertCompute       = "compute"
	AssertOutput        = "output"
	AssertReports       = "reports"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Document != "" {
		if _, err := os.Stat(s.Document); os.IsNotExist(err) {
			return fmt.Errorf("document not found: %s", s.Document)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step carries the fields its op needs.
func validateStep(field string, step Step) error {
	needNode := func() error {
		if step.Node == "" {
			return fmt.Errorf("%s: node is required for %s", field, step.Op)
		}
		return nil
	}

	switch step.Op {
	case OpCreate:
		if err := needNode(); err != nil {
			return err
		}
		if step.Func != "" && step.Value != nil {
			return fmt.Errorf("%s: create takes func or value, not both", field)
		}
	case OpSetArg:
		if err := needNode(); err != nil {
			return err
		}
		if step.Param == "" {
			return fmt.Errorf("%s: param is required for set_arg", field)
		}
		if step.Ref != "" && step.Value != nil {
			return fmt.Errorf("%s: set_arg takes ref or value, not both", field)
		}
	case OpUnbind:
		if err := needNode(); err != nil {
			return err
		}
		if step.Param == "" {
			return fmt.Errorf("%s: param is required for unbind", field)
		}
	case OpSetValue, OpDelete, OpOutput:
		return needNode()
	case OpAnimate:
		if err := needNode(); err != nil {
			return err
		}
		if step.Animate == nil {
			return fmt.Errorf("%s: animate block is required", field)
		}
		if step.Animate.Step == 0 {
			return fmt.Errorf("%s: animate step must be non-zero", field)
		}
	case OpSync:
		if step.Source == "" {
			return fmt.Errorf("%s: source is required for sync", field)
		}
	case "":
		return fmt.Errorf("%s: op is required", field)
	default:
		return fmt.Errorf("%s: unknown op %q", field, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertCompute:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for compute", index)
		}
	case AssertOutput:
	case AssertReports:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for reports", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
