package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mathgraph/internal/value"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toValue converts the snapshot to a Value for canonical serialization.
// Functions are rendered by signature.
func (s *TraceSnapshot) toValue() value.Value {
	trace := make(value.Array, len(s.Trace))
	for i, event := range s.Trace {
		obj := value.Object{
			"seq":  value.Int(event.Seq),
			"type": value.String(event.Type),
			"node": value.String(event.Node),
		}
		if event.Param != "" {
			obj["param"] = value.String(event.Param)
		}
		if event.Ref != "" {
			obj["ref"] = value.String(event.Ref)
		}
		if event.Error != "" {
			obj["error"] = value.String(event.Error)
		}
		if event.Value != nil {
			if f, ok := event.Value.(*value.Func); ok {
				obj["value"] = value.String(f.String())
			} else {
				obj["value"] = event.Value
			}
		}
		trace[i] = obj
	}
	return value.Object{
		"scenario_name": value.String(s.ScenarioName),
		"trace":         trace,
	}
}

// MarshalTrace renders a trace as canonical JSON.
func MarshalTrace(name string, trace []TraceEvent) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: trace}
	return value.MarshalCanonical(snapshot.toValue())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
