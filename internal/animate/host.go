package animate

import "time"

// Cancel stops a scheduled callback. Calling it after the callback ran, or
// twice, is a no-op.
type Cancel func()

// Host schedules tick callbacks.
type Host interface {
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Cancel
}

// WallHost schedules on the wall clock and posts every callback into a
// Loop, so callbacks never run concurrently with other graph work.
type WallHost struct {
	Loop *Loop
}

// AfterFunc implements Host.
func (h WallHost) AfterFunc(d time.Duration, f func()) Cancel {
	t := time.AfterFunc(d, func() {
		h.Loop.Enqueue(Task(f))
	})
	return func() { t.Stop() }
}
