package sourcesync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/testutil"
	"github.com/roach88/mathgraph/internal/value"
)

func newSyncer(t *testing.T) (*Syncer, *graph.Graph) {
	t.Helper()
	g, _ := testutil.NewGraph()
	return New(g, funcs.Builtins(), WithLogger(testutil.DiscardLogger())), g
}

func compute(t *testing.T, g *graph.Graph, name string) value.Value {
	t.Helper()
	v, err := g.Compute(name)
	require.NoError(t, err)
	return v
}

func assertNumber(t *testing.T, want float64, got value.Value) {
	t.Helper()
	assert.True(t, value.Equal(value.Number(want), got), "want %v, got %s", want, value.Format(got))
}

func TestApply_LiteralCallAndOperator(t *testing.T) {
	s, g := newSyncer(t)

	res, err := s.Apply("main.hcl", []byte(`
a = 2
b = add(a, 2)
k = 3
c = b * k
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "k", "c"}, res.Assigned)
	assert.Equal(t, []string{"mul"}, res.Helpers)

	assert.Equal(t, value.Int(2), compute(t, g, "a"))
	assertNumber(t, 4, compute(t, g, "b"))
	assertNumber(t, 12, compute(t, g, "c"))

	b, _ := g.Node("b")
	assert.True(t, b.IsInvocable())
	bind, _ := b.Binding("a")
	assert.Equal(t, graph.Reference("a"), bind)
	bind, _ = b.Binding("b")
	assert.Equal(t, graph.Literal(value.Int(2)), bind)

	mul, ok := g.Node("mul")
	require.True(t, ok)
	flag, _ := mul.Option(HelperOption)
	assert.Equal(t, "true", flag)

	c, _ := g.Node("c")
	assert.False(t, c.IsInvocable())
	bind, _ = c.Binding(value.ValueParam)
	assert.Equal(t, graph.Reference("mul"), bind)

	// The synced graph stays live.
	require.NoError(t, g.SetValue("k", value.Int(10)))
	assertNumber(t, 40, compute(t, g, "c"))
}

func TestApply_ResyncReplacesHelpers(t *testing.T) {
	s, g := newSyncer(t)

	_, err := s.Apply("main.hcl", []byte("b = 5\nk = 3\nc = b * k\n"))
	require.NoError(t, err)
	require.True(t, g.Has("mul"))

	res, err := s.Apply("main.hcl", []byte("c = b - k\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sub"}, res.Helpers)
	assert.False(t, g.Has("mul"))
	assertNumber(t, 2, compute(t, g, "c"))

	// b and k were released by the old helper and could be rebound.
	b, _ := g.Node("b")
	conn, ok := b.Connection()
	require.True(t, ok)
	assert.Equal(t, "sub", conn.Consumer)
}

func TestApply_NestedCallCreatesHelper(t *testing.T) {
	s, g := newSyncer(t)

	res, err := s.Apply("main.hcl", []byte("q = 4\ny = neg(q + 1)\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"add"}, res.Helpers)

	y, _ := g.Node("y")
	assert.True(t, y.IsInvocable())
	assertNumber(t, -5, compute(t, g, "y"))
}

func TestApply_UniqueHelperNames(t *testing.T) {
	s, g := newSyncer(t)

	res, err := s.Apply("main.hcl", []byte(`
a = 1
b = 2
c = 3
d = 4
x = a + b
y = c + d
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "add_2"}, res.Helpers)
	assertNumber(t, 3, compute(t, g, "x"))
	assertNumber(t, 7, compute(t, g, "y"))
}

func TestApply_CallsInvocableNode(t *testing.T) {
	s, g := newSyncer(t)
	mul, err := funcs.Builtins().Get("mul")
	require.NoError(t, err)
	_, err = g.Create("scale", mul)
	require.NoError(t, err)

	_, err = s.Apply("main.hcl", []byte("s = scale(3, 4)\n"))
	require.NoError(t, err)
	assertNumber(t, 12, compute(t, g, "s"))
}

func TestApply_NegationAndAlias(t *testing.T) {
	s, g := newSyncer(t)

	res, err := s.Apply("main.hcl", []byte("a = 3\nn = -a\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"neg"}, res.Helpers)
	assertNumber(t, -3, compute(t, g, "n"))

	_, err = s.Apply("main.hcl", []byte("m = 9\nalias = m\n"))
	require.NoError(t, err)
	assertNumber(t, 9, compute(t, g, "alias"))
	m, _ := g.Node("m")
	conn, _ := m.Connection()
	assert.Equal(t, graph.Connection{Consumer: "alias", Param: value.ValueParam}, conn)
}

func TestApply_Literals(t *testing.T) {
	s, g := newSyncer(t)

	_, err := s.Apply("main.hcl", []byte(`
xs   = [1, 2.5, "t"]
flag = true
obj  = { k = 1 }
sum  = 1 + 2
`))
	require.NoError(t, err)

	assert.Equal(t, value.Array{value.Int(1), value.Float(2.5), value.String("t")}, compute(t, g, "xs"))
	assert.Equal(t, value.Bool(true), compute(t, g, "flag"))
	assert.Equal(t, value.Object{"k": value.Int(1)}, compute(t, g, "obj"))
	assertNumber(t, 3, compute(t, g, "sum"))
}

func TestApply_ReusedSourceMovesConnection(t *testing.T) {
	s, g := newSyncer(t)

	// a feeds b until the operator binds it elsewhere; a Node has one
	// outbound connection.
	_, err := s.Apply("main.hcl", []byte(`
a = 2
b = add(a, 2)
c = a + b
`))
	require.NoError(t, err)

	a, _ := g.Node("a")
	conn, ok := a.Connection()
	require.True(t, ok)
	assert.Equal(t, graph.Connection{Consumer: "add", Param: "a"}, conn)

	b, _ := g.Node("b")
	bind, _ := b.Binding("a")
	assert.False(t, bind.IsBound())
}

func TestApply_ErrorsContinue(t *testing.T) {
	s, g := newSyncer(t)

	res, err := s.Apply("main.hcl", []byte(`z = ghost + 1
w = nope(1)
v = neg(1, 2)
ok = 1
`))
	require.Error(t, err)

	var se *SyncError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Diags, 3)
	assert.Equal(t, 1, se.Diags[0].Subject.Start.Line)
	assert.Equal(t, 2, se.Diags[1].Subject.Start.Line)
	assert.True(t, graph.IsUnknownNode(err))

	assert.Equal(t, []string{"ok"}, res.Assigned)
	assert.True(t, g.Has("ok"))
	assert.False(t, g.Has("z"))
	assert.False(t, g.Has("w"))
}

func TestApply_UnknownFunction(t *testing.T) {
	s, _ := newSyncer(t)
	_, err := s.Apply("main.hcl", []byte("w = nope(1)\n"))
	assert.True(t, errors.Is(err, funcs.ErrNotFound))
}

func TestApply_ParseError(t *testing.T) {
	s, g := newSyncer(t)
	_, err := s.Apply("main.hcl", []byte("a = \n"))

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Diags.HasErrors())
	assert.Nil(t, se.Err)
	assert.Zero(t, g.Len())
}

func TestApply_RejectsBlocks(t *testing.T) {
	s, _ := newSyncer(t)
	_, err := s.Apply("main.hcl", []byte("thing {\n}\n"))

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "Unsupported block")
}

func TestApply_UnsupportedExpression(t *testing.T) {
	s, g := newSyncer(t)
	_, err := s.Apply("main.hcl", []byte("a = 1\nb = a ? 1 : 2\n"))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, g.Has("b"))
}
