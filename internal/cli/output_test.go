package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/persist"
	"github.com/roach88/mathgraph/internal/sourcesync"
)

func sampleState() GraphState {
	return GraphState{
		Graph: "chain",
		Nodes: []NodeState{
			{Name: "a", Value: 2, Connection: "b.a", display: "2"},
			{Name: "b", Func: "add", Value: 5, display: "5"},
		},
		Output:  OutputState{Log: "b"},
		Reports: []Report{{Node: "b", Error: "division by zero"}},
	}
}

func TestOutputFormatter_GraphStateJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Success(sampleState()))

	var st GraphState
	assert.Equal(t, "ok", decodeData(t, buf.String(), &st))
	assert.Equal(t, "chain", st.Graph)
	assert.Equal(t, 5.0, nodeValue(t, st, "b"))
	assert.Equal(t, "b.a", st.Nodes[0].Connection)
	assert.Equal(t, "b", st.Output.Log)
	assert.Equal(t, []Report{{Node: "b", Error: "division by zero"}}, st.Reports)
}

func TestOutputFormatter_GraphStateText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Success(sampleState()))

	assert.Equal(t, `graph chain
  a = 2 -> b.a
  b (add) = 5
output: members [], log "b"
! b: division by zero
1 failure(s) reported
`, buf.String())
}

func TestOutputFormatter_FailCarriesData(t *testing.T) {
	result := ValidationResult{
		Files:  1,
		Errors: []DocumentError{{File: "g.yaml", Field: "nodes[0].func", Code: document.ErrUnknownFunc, Message: `unknown function "nope"`}},
	}

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	err := f.Fail(ExitFailure, ErrCodeInvalid, "validation failed with 1 error(s)", result)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeInvalid, Classify(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)

	var got ValidationResult
	decodeData(t, buf.String(), &got)
	assert.Equal(t, result.Errors, got.Errors)

	buf.Reset()
	f.Format = "text"
	_ = f.Fail(ExitFailure, ErrCodeInvalid, "validation failed", result)
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), `E203 nodes[0].func: unknown function "nope"`)
	assert.NotContains(t, buf.String(), "Error [")
}

func TestOutputFormatter_FailWithoutData(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	err := f.Fail(ExitCommandError, ErrCodeNotFound, "revision 0190 not found", nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E002]: revision 0190 not found\n", buf.String())
}

func TestOutputFormatter_SyncDiagnosticsDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	details := []SyncDiagnostic{{Summary: "Unknown node", Detail: `"ghost" is not a node`, Line: 2, Column: 7}}
	require.NoError(t, f.Error(ErrCodeSync, "sync failed with 1 diagnostic(s)", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, ErrCodeSync, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "Unknown node", resp.Error.Details.([]any)[0].(map[string]any)["summary"])
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	f.VerboseLog("Loaded %d node(s) from %s", 3, "chain.yaml")
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("Loaded %d node(s) from %s", 3, "chain.yaml")
	assert.Equal(t, "Loaded 3 node(s) from chain.yaml\n", errOut.String())
	assert.Empty(t, out.String(), "verbose lines never corrupt JSON output")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing file", fmt.Errorf("read: %w", fs.ErrNotExist), ErrCodeNotFound},
		{"missing revision", fmt.Errorf("revision x: %w", persist.ErrNotFound), ErrCodeNotFound},
		{"parse", &document.ParseError{Field: "nodes", Message: "bad"}, ErrCodeParse},
		{"apply", WrapExitError(ExitFailure, "failed to apply document", &document.LoadError{Node: "f", Err: graph.ErrUnknownNode}), ErrCodeApply},
		{"graph", fmt.Errorf("set: %w", &graph.Error{Node: "x", Err: graph.ErrSelfReference}), ErrCodeApply},
		{"sync", &sourcesync.SyncError{Diags: hcl.Diagnostics{{Severity: hcl.DiagError, Summary: "bad"}}}, ErrCodeSync},
		{"store", &ExitError{Code: ExitCommandError, Reason: ErrCodeStore, Message: "open"}, ErrCodeStore},
		{"other", assert.AnError, ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := WrapExitError(ExitFailure, "sync failed", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("outer: %w", wrapped)))
}
