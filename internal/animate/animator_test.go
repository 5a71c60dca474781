package animate_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/animate"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/testutil"
	"github.com/roach88/mathgraph/internal/value"
)

func TestAnimator_TimerDrivesToStopExactly(t *testing.T) {
	var seen []value.Value
	g, _ := testutil.NewGraph(graph.WithObserver(func(ev graph.Event) {
		if ev.Type == graph.EventUpdate && ev.Node == "x" {
			seen = append(seen, ev.Value)
		}
	}))
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	host := testutil.NewManualHost()
	var idle []string
	a := animate.New(g,
		animate.WithHost(host),
		animate.WithLogger(testutil.DiscardLogger()),
		animate.WithOnIdle(func(target string) { idle = append(idle, target) }),
	)

	require.NoError(t, a.Start("x", "", 0, 1, 0.5, 10*time.Millisecond))
	assert.Equal(t, animate.StateRunning, a.State("x"))

	host.Advance(10 * time.Millisecond)
	host.Advance(10 * time.Millisecond)
	assert.Equal(t, animate.StateRunning, a.State("x"), "the boundary check happens on the next tick")

	host.Advance(10 * time.Millisecond)
	assert.Equal(t, animate.StateIdle, a.State("x"))
	assert.Equal(t, 0, host.Pending())
	assert.Equal(t, []string{"x"}, idle)

	assert.Equal(t, []value.Value{value.Float(0), value.Float(0.5), value.Float(1.0)}, seen)

	got, err := g.Compute("x")
	require.NoError(t, err)
	assert.Equal(t, value.Float(1.0), got)
}

func TestAnimator_ClampsOvershoot(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Float(0))
	require.NoError(t, err)

	a := animate.New(g, animate.WithMode(animate.ModeFrame), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 0, 1, 0.4, 0))

	var values []float64
	for i := 0; i < 10; i++ {
		frame := a.Tick()
		if v, ok := frame.Values["x"]; ok {
			f, _ := value.AsFloat(v)
			values = append(values, f)
		}
		if frame.Done {
			break
		}
	}
	assert.InDeltaSlice(t, []float64{0.4, 0.8, 1.0, 1.0}, values, 1e-9)

	cur, ok := a.Current("x")
	require.True(t, ok)
	assert.Equal(t, 1.0, cur, "never beyond stop")
}

func TestAnimator_NegativeStep(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Float(1))
	require.NoError(t, err)

	a := animate.New(g, animate.WithMode(animate.ModeFrame), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 1, -1, -0.75, 0))

	for i := 0; i < 10 && a.Active() > 0; i++ {
		a.Tick()
	}
	got, _ := g.Compute("x")
	assert.Equal(t, value.Float(-1), got)
	assert.Equal(t, animate.StateIdle, a.State("x"))
}

func TestAnimator_FrameModeReturnsDone(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	a := animate.New(g, animate.WithMode(animate.ModeFrame), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 0, 1, 1, 0))

	first := a.Tick()
	assert.False(t, first.Done)
	assert.Equal(t, value.Float(1), first.Values["x"])

	second := a.Tick()
	assert.True(t, second.Done)

	third := a.Tick()
	assert.True(t, third.Done)
	assert.Empty(t, third.Values)
}

func TestAnimator_WritesThroughSetArgAndPropagates(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("src", value.Int(0))
	require.NoError(t, err)
	_, err = g.Create("scale", value.NewFunc("scale", func(args []value.Value, kw map[string]value.Value) (value.Value, error) {
		a, _ := value.AsFloat(args[0])
		k, _ := value.AsFloat(kw["k"])
		return value.Number(a * k), nil
	}, value.P("a"), value.K("k", value.Int(1))))
	require.NoError(t, err)
	require.NoError(t, g.SetArg("scale", "a", graph.Reference("src")))
	require.NoError(t, g.SetValue("src", value.Int(3)))

	a := animate.New(g, animate.WithMode(animate.ModeFrame), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("scale", "k", 1, 2, 1, 0))
	a.Tick()

	got, _ := g.Compute("scale")
	assert.Equal(t, value.Int(6), got)

	n, _ := g.Node("scale")
	b, _ := n.Binding("k")
	assert.Equal(t, graph.Literal(value.Float(2)), b)
}

func TestAnimator_PauseAndResumeFromCurrent(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	host := testutil.NewManualHost()
	a := animate.New(g, animate.WithHost(host), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 0, 10, 1, time.Second))

	host.Advance(3 * time.Second)
	a.PauseAll()
	assert.Equal(t, animate.StatePaused, a.State("x"))
	assert.Equal(t, 0, host.Pending())

	host.Advance(5 * time.Second)
	cur, _ := a.Current("x")
	assert.Equal(t, 3.0, cur, "paused animations do not advance")

	a.ResumeAll()
	assert.Equal(t, animate.StateRunning, a.State("x"))
	host.Advance(time.Second)
	cur, _ = a.Current("x")
	assert.Equal(t, 4.0, cur, "resumes from the current value")
}

func TestAnimator_StopCancelsScheduling(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	host := testutil.NewManualHost()
	a := animate.New(g, animate.WithHost(host), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 0, 10, 1, time.Second))
	host.Advance(2 * time.Second)

	a.Stop("x")
	assert.Equal(t, animate.StateIdle, a.State("x"))
	assert.Equal(t, 0, host.RunAll(100))

	got, _ := g.Compute("x")
	assert.Equal(t, value.Float(2), got)
}

func TestAnimator_RestartReplacesAnimation(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	host := testutil.NewManualHost()
	a := animate.New(g, animate.WithHost(host), animate.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, a.Start("x", "", 0, 10, 1, time.Second))
	require.NoError(t, a.Start("x", "", 100, 101, 1, time.Second))

	assert.Equal(t, 1, host.Pending())
	host.RunAll(100)
	got, _ := g.Compute("x")
	assert.Equal(t, value.Float(101), got)
}

func TestAnimator_StartErrors(t *testing.T) {
	g, _ := testutil.NewGraph()

	a := animate.New(g, animate.WithLogger(testutil.DiscardLogger()))
	assert.ErrorIs(t, a.Start("x", "", 0, 1, 1, 0), animate.ErrNoHost)

	a = animate.New(g, animate.WithMode(animate.ModeFrame), animate.WithLogger(testutil.DiscardLogger()))
	assert.ErrorIs(t, a.Start("missing", "", 0, 1, 1, 0), graph.ErrUnknownNode)

	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)
	assert.NoError(t, a.Start("x", "", 0, 1, 0, 0), "a zero step settles on stop at the first tick")
	assert.Error(t, a.Start("x", "nope", 0, 1, 1, 0))
}

func TestWallHost_PostsIntoLoop(t *testing.T) {
	g, _ := testutil.NewGraph()
	_, err := g.Create("x", value.Int(0))
	require.NoError(t, err)

	loop := animate.NewLoop(testutil.DiscardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var finished atomic.Bool
	a := animate.New(g,
		animate.WithHost(animate.WallHost{Loop: loop}),
		animate.WithLogger(testutil.DiscardLogger()),
		animate.WithOnIdle(func(string) {
			finished.Store(true)
			loop.Close()
		}),
	)
	require.True(t, loop.Enqueue(func() {
		require.NoError(t, a.Start("x", "", 0, 1, 0.25, time.Millisecond))
	}))

	require.NoError(t, loop.Run(ctx))
	assert.True(t, finished.Load())

	got, _ := g.Compute("x")
	assert.Equal(t, value.Float(1), got)
}
