package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/output"
	"github.com/roach88/mathgraph/internal/testutil"
	"github.com/roach88/mathgraph/internal/value"
)

func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts := []Option{WithLogger(testutil.DiscardLogger())}
	if len(ids) > 0 {
		opts = append(opts, WithIDGenerator(NewFixedGenerator(ids...)))
	}
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newSinkGraph(t *testing.T) (*graph.Graph, *output.Sink) {
	t.Helper()
	sink := output.New(nil, output.WithLogger(testutil.DiscardLogger()))
	g, _ := testutil.NewGraph(graph.WithSink(sink))
	return g, sink
}

// buildChain makes c = neg(add(a, 3)) with a = 2 and exports c.
func buildChain(t *testing.T, g *graph.Graph, sink *output.Sink) {
	t.Helper()
	lib := funcs.Builtins()

	add, err := lib.Get("add")
	require.NoError(t, err)
	neg, err := lib.Get("neg")
	require.NoError(t, err)

	_, err = g.Create("a", value.Int(2))
	require.NoError(t, err)
	_, err = g.Create("b", add)
	require.NoError(t, err)
	_, err = g.Create("c", neg)
	require.NoError(t, err)

	require.NoError(t, g.SetArg("b", "a", graph.Reference("a")))
	require.NoError(t, g.SetArg("b", "b", graph.Literal(value.Int(3))))
	require.NoError(t, g.SetArg("c", "x", graph.Reference("b")))

	n, _ := g.Node("c")
	n.SetOption("color", "red")
	sink.Connect(n)
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	_, err = s1.SaveDocument(context.Background(), &document.Document{
		Name:  "g",
		Nodes: []document.NodeRecord{{Name: "a", Value: int64(1)}},
	})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	defer s2.Close()

	names, err := s2.Graphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, names)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "rev-1")

	g, sink := newSinkGraph(t)
	buildChain(t, g, sink)

	rev, err := s.Save(ctx, "chain", g, document.Layout{"a": {X: 10, Y: 20}})
	require.NoError(t, err)
	assert.Equal(t, Revision{ID: "rev-1", Graph: "chain", Seq: 1, Hash: rev.Hash, Nodes: 3}, rev)
	assert.Len(t, rev.Hash, 64)

	g2, sink2 := newSinkGraph(t)
	loaded, err := s.Load(ctx, "chain", g2, funcs.Builtins())
	require.NoError(t, err)
	assert.Equal(t, rev, loaded)

	assert.Equal(t, []string{"a", "b", "c"}, g2.Names())
	c, err := g2.Compute("c")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(-5), c), "got %s", value.Format(c))
	holder, ok := sink2.LogHolder()
	require.True(t, ok)
	assert.Equal(t, "c", holder)

	n, _ := g2.Node("c")
	color, ok := n.Option("color")
	require.True(t, ok)
	assert.Equal(t, "red", color)

	a, _ := g2.Node("a")
	conn, ok := a.Connection()
	require.True(t, ok)
	assert.Equal(t, "b", conn.Consumer)
	assert.Equal(t, "a", conn.Param)

	// The reloaded graph is live.
	require.NoError(t, g2.SetValue("a", value.Int(10)))
	c, _ = g2.Compute("c")
	assert.True(t, value.Equal(value.Int(-13), c), "got %s", value.Format(c))
}

func TestLoadDocument_KeepsLayoutAndBindings(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	g, sink := newSinkGraph(t)
	buildChain(t, g, sink)
	_, err := s.Save(ctx, "chain", g, document.Layout{"a": {X: 10, Y: 20}})
	require.NoError(t, err)

	doc, _, err := s.LoadDocument(ctx, "chain")
	require.NoError(t, err)
	assert.Equal(t, "chain", doc.Name)
	assert.Equal(t, []string{"c"}, doc.Output)

	a, ok := doc.Node("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), a.Value)
	assert.Equal(t, &document.Position{X: 10, Y: 20}, a.Position)
	assert.Equal(t, &document.ConnectionRecord{Consumer: "b", Param: "a"}, a.Connection)

	b, _ := doc.Node("b")
	assert.Equal(t, "add", b.Func)
	assert.Nil(t, b.Position)
	assert.Equal(t, map[string]document.BindingRecord{
		"a": {Ref: "a"},
		"b": {Value: int64(3)},
	}, b.Args)
}

func TestLoad_ForwardReferences(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// y reads scaled and scaled reads k, each declared after its consumer.
	_, err := s.SaveDocument(ctx, &document.Document{
		Name: "forward",
		Nodes: []document.NodeRecord{
			{Name: "y", Func: "neg", Args: map[string]document.BindingRecord{"x": {Ref: "scaled"}}},
			{Name: "scaled", Func: "mul", Args: map[string]document.BindingRecord{
				"a": {Ref: "k"},
				"b": {Value: 1.5},
			}},
			{Name: "k", Value: int64(4)},
		},
		Output: []string{"y"},
	})
	require.NoError(t, err)

	g, sink := newSinkGraph(t)
	_, err = s.Load(ctx, "forward", g, funcs.Builtins())
	require.NoError(t, err)

	assert.Equal(t, []string{"y", "scaled", "k"}, g.Names())
	y, err := g.Compute("y")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(-6), y), "got %s", value.Format(y))
	holder, ok := sink.LogHolder()
	require.True(t, ok)
	assert.Equal(t, "y", holder)
}

func TestSave_UnchangedIsNoop(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "rev-1", "rev-2")

	g, sink := newSinkGraph(t)
	buildChain(t, g, sink)

	first, err := s.Save(ctx, "chain", g, nil)
	require.NoError(t, err)
	again, err := s.Save(ctx, "chain", g, nil)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, g.SetValue("a", value.Int(7)))
	second, err := s.Save(ctx, "chain", g, nil)
	require.NoError(t, err)
	assert.Equal(t, "rev-2", second.ID)
	assert.Equal(t, int64(2), second.Seq)
	assert.NotEqual(t, first.Hash, second.Hash)

	revs, err := s.Revisions(ctx, "chain")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, []string{"rev-1", "rev-2"}, []string{revs[0].ID, revs[1].ID})

	// The older revision is still readable.
	doc, rev, err := s.LoadRevision(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Seq)
	a, _ := doc.Node("a")
	assert.Equal(t, int64(2), a.Value)

	latest, _, err := s.LoadDocument(ctx, "chain")
	require.NoError(t, err)
	a, _ = latest.Node("a")
	assert.Equal(t, int64(7), a.Value)
}

func TestSave_RequiresName(t *testing.T) {
	s := createTestStore(t)
	_, err := s.SaveDocument(context.Background(), &document.Document{})
	assert.Error(t, err)
}

func TestLoad_NotFound(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	g, _ := newSinkGraph(t)
	_, err := s.Load(ctx, "ghost", g, funcs.Builtins())
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.LoadRevision(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_CascadesNodes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	g, sink := newSinkGraph(t)
	buildChain(t, g, sink)
	_, err := s.Save(ctx, "chain", g, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "chain"))

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count))
	assert.Zero(t, count)

	names, err := s.Graphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, s.Delete(ctx, "chain"), ErrNotFound)
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
