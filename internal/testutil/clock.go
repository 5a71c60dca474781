package testutil

import (
	"sort"
	"time"

	"github.com/roach88/mathgraph/internal/animate"
)

// ManualHost is an animate.Host driven by a virtual clock.
//
// Nothing fires until the test calls Advance or RunAll, so animation tests
// are deterministic and never sleep. Timers due at the same instant fire in
// scheduling order.
//
// Thread-safety: none. Use from the test goroutine only.
type ManualHost struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Duration
	seq       int
	f         func()
	cancelled bool
}

var _ animate.Host = (*ManualHost)(nil)

// NewManualHost creates a host whose clock starts at zero.
func NewManualHost() *ManualHost {
	return &ManualHost{}
}

// AfterFunc implements animate.Host.
func (h *ManualHost) AfterFunc(d time.Duration, f func()) animate.Cancel {
	h.seq++
	t := &manualTimer{at: h.now + d, seq: h.seq, f: f}
	h.timers = append(h.timers, t)
	return func() { t.cancelled = true }
}

// Now returns the virtual time elapsed since creation.
func (h *ManualHost) Now() time.Duration {
	return h.now
}

// Pending returns the number of armed, uncancelled timers.
func (h *ManualHost) Pending() int {
	n := 0
	for _, t := range h.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that falls due,
// including timers armed by callbacks within the window. Returns the number
// of callbacks run.
func (h *ManualHost) Advance(d time.Duration) int {
	deadline := h.now + d
	fired := 0
	for {
		t := h.next()
		if t == nil || t.at > deadline {
			break
		}
		h.fire(t)
		fired++
	}
	h.now = deadline
	return fired
}

// RunAll fires timers in order until none remain or limit callbacks have
// run. Returns the number of callbacks run.
func (h *ManualHost) RunAll(limit int) int {
	fired := 0
	for fired < limit {
		t := h.next()
		if t == nil {
			break
		}
		h.fire(t)
		fired++
	}
	return fired
}

func (h *ManualHost) next() *manualTimer {
	live := h.timers[:0]
	for _, t := range h.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	h.timers = live
	if len(h.timers) == 0 {
		return nil
	}
	sort.SliceStable(h.timers, func(i, j int) bool {
		if h.timers[i].at != h.timers[j].at {
			return h.timers[i].at < h.timers[j].at
		}
		return h.timers[i].seq < h.timers[j].seq
	})
	return h.timers[0]
}

func (h *ManualHost) fire(t *manualTimer) {
	t.cancelled = true
	if t.at > h.now {
		h.now = t.at
	}
	t.f()
}
