package animate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is one unit of work run on the Loop goroutine.
type Task func()

// Loop is the single-writer task loop.
//
// Graph mutation is not thread-safe, so anything arriving from another
// goroutine (timer callbacks, signal handlers) is posted here and runs on
// the one goroutine that calls Run.
//
// Thread-safety model:
//   - Enqueue(), Close(), Len(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// The queue is unbounded so a task may enqueue follow-on tasks without
// blocking.
type Loop struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{} // buffered, size 1; closed by Close

	logger *slog.Logger
}

// NewLoop creates an empty Loop.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make([]Task, 0, 16),
		signal: make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue adds a task to the back of the queue.
// Returns false if the loop is closed.
func (l *Loop) Enqueue(t Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, t)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) tryDequeue() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	t := l.tasks[0]
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return t, true
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Close stops accepting tasks. Run drains what is queued, then returns.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Run executes tasks in FIFO order until ctx is cancelled or the loop is
// closed and drained. A panicking task is logged and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")
	for {
		if t, ok := l.tryDequeue(); ok {
			if err := l.run(t); err != nil {
				l.logger.Error("task failed", "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.Close()
			return ctx.Err()

		case <-l.signal:
			// A closed signal channel fires immediately.
			l.mu.Lock()
			done := l.closed && len(l.tasks) == 0
			l.mu.Unlock()
			if done {
				l.logger.Debug("loop stopping: closed")
				return nil
			}
		}
	}
}

func (l *Loop) run(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	t()
	return nil
}
