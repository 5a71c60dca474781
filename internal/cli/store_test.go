package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	db := filepath.Join(t.TempDir(), "graphs.db")

	out, err := execute(t, "save", "testdata/chain.yaml", "--db", db, "--format", "json")
	require.NoError(t, err)
	var first RevisionInfo
	assert.Equal(t, "ok", decodeData(t, out, &first))
	assert.Equal(t, "chain", first.Graph)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, 3, first.Nodes)

	// Unchanged content is not saved again.
	out, err = execute(t, "save", "testdata/chain.yaml", "--db", db, "--format", "json")
	require.NoError(t, err)
	var again RevisionInfo
	decodeData(t, out, &again)
	assert.Equal(t, first.ID, again.ID)

	out, err = execute(t, "load", "chain", "--db", db, "--format", "json")
	require.NoError(t, err)
	var loaded LoadResult
	decodeData(t, out, &loaded)
	assert.Equal(t, first.ID, loaded.Revision.ID)
	assert.Equal(t, -5.0, nodeValue(t, loaded.State, "c"))
	assert.Equal(t, "c", loaded.State.Output.Log)

	out, err = execute(t, "load", "--db", db, "--revision", first.ID, "--format", "json")
	require.NoError(t, err)
	decodeData(t, out, &loaded)
	assert.Equal(t, "chain", loaded.Revision.Graph)
}

func TestSave_NameFlagAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "graphs.db")

	_, err := execute(t, "save", "testdata/chain.yaml", "--db", db, "--name", "draft")
	require.NoError(t, err)
	_, err = execute(t, "save", "testdata/chain.yaml", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "load", "--db", db, "--list", "--format", "json")
	require.NoError(t, err)
	var list ListResult
	decodeData(t, out, &list)
	assert.Equal(t, []string{"chain", "draft"}, list.Graphs)

	out, err = execute(t, "load", "draft", "--db", db, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "1  ")
}

func TestLoad_Export(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "graphs.db")
	exported := filepath.Join(dir, "chain.yaml")

	_, err := execute(t, "save", "testdata/chain.yaml", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "load", "chain", "--db", db, "--export", exported)
	require.NoError(t, err)

	out, err := execute(t, "run", exported, "--format", "json")
	require.NoError(t, err)
	var st GraphState
	decodeData(t, out, &st)
	assert.Equal(t, -5.0, nodeValue(t, st, "c"))
}

func TestLoad_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "graphs.db")

	_, err := execute(t, "load", "ghost", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "load", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph name or --revision")

	_, err = execute(t, "save", "testdata/chain.yaml", "--db", filepath.Join(t.TempDir(), "no", "such", "dir", "x.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
