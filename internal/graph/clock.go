package graph

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp graph events.
//
// Events are ordered by seq, never by wall-clock time, so a replayed
// sequence of writes produces the same event stream.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the single-writer graph only calls it from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when a reloaded graph resumes from a saved position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
