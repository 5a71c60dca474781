package animate

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLoop() *Loop {
	return NewLoop(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoop_FIFO(t *testing.T) {
	l := quietLoop()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, l.Enqueue(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, l.Len())
	l.Close()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, l.Len())
}

func TestLoop_TaskMayEnqueue(t *testing.T) {
	l := quietLoop()
	var order []string
	l.Enqueue(func() {
		order = append(order, "first")
		l.Enqueue(func() {
			order = append(order, "second")
			l.Close()
		})
	})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLoop_EnqueueAfterClose(t *testing.T) {
	l := quietLoop()
	l.Close()
	l.Close()
	assert.False(t, l.Enqueue(func() {}))
}

func TestLoop_ContextCancel(t *testing.T) {
	l := quietLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, l.Enqueue(func() {}), "cancelled loop is closed")
}

func TestLoop_PanicDoesNotStopLoop(t *testing.T) {
	l := quietLoop()
	ran := false
	l.Enqueue(func() { panic("boom") })
	l.Enqueue(func() { ran = true })
	l.Close()

	require.NoError(t, l.Run(context.Background()))
	assert.True(t, ran)
}

func TestLoop_ConcurrentEnqueue(t *testing.T) {
	l := quietLoop()
	const producers = 10
	const perProducer = 100

	count := 0
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				l.Enqueue(func() { count++ })
			}
		}()
	}

	go func() {
		wg.Wait()
		l.Close()
	}()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, producers*perProducer, count)
}
