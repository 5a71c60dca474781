package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData decodes the data payload of a JSON response into out.
func decodeData(t *testing.T, output string, out any) string {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp.Status
}

// nodeValue finds a node's value in a state.
func nodeValue(t *testing.T, st GraphState, name string) any {
	t.Helper()
	for _, n := range st.Nodes {
		if n.Name == name {
			return n.Value
		}
	}
	t.Fatalf("node %s not in state", name)
	return nil
}

func decodeJSON(output string, out any) error {
	return json.Unmarshal([]byte(output), out)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
