package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_JSON(t *testing.T) {
	out, err := execute(t, "sync", "testdata/model.hcl", "--format", "json")
	require.NoError(t, err)

	var res SyncResult
	assert.Equal(t, "ok", decodeData(t, out, &res))
	assert.Equal(t, []string{"a", "b", "k", "c"}, res.Assigned)
	assert.Equal(t, []string{"mul"}, res.Helpers)
	assert.Equal(t, 12.0, nodeValue(t, res.State, "c"))
}

func TestSync_OnTopOfDocument(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "tweak.hcl", "a = 7\n")

	out, err := execute(t, "sync", src, "--document", "testdata/chain.yaml", "--format", "json")
	require.NoError(t, err)

	var res SyncResult
	decodeData(t, out, &res)
	assert.Equal(t, -10.0, nodeValue(t, res.State, "c"))
}

func TestSync_Diagnostics(t *testing.T) {
	out, err := execute(t, "sync", "testdata/broken.hcl")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Cannot apply assignment")
	assert.Contains(t, out, "broken.hcl line 2")

	out, err = execute(t, "sync", "testdata/broken.hcl", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, decodeJSON(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSync, resp.Error.Code)
	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, 2.0, details[0].(map[string]any)["line"])
}

func TestSync_MissingSource(t *testing.T) {
	_, err := execute(t, "sync", "testdata/nope.hcl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
