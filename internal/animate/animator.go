// Package animate drives Node values over time.
//
// An Animator steps a bound value from start to stop, writing every step
// through the Graph's normal SetArg or SetValue path so propagation and sink
// refresh happen exactly as for any other write. It runs either on a timer
// (ModeTimer, scheduled through a Host) or once per externally driven frame
// (ModeFrame, the host calls Tick).
//
// Thread-safety: none. Timer callbacks must reach the Animator on the
// graph's goroutine; WallHost does that by posting into a Loop.
package animate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// Mode selects how ticks are driven.
type Mode int

const (
	// ModeTimer schedules each tick through the Host after a fixed delay.
	ModeTimer Mode = iota
	// ModeFrame leaves ticking to the caller, once per rendered frame.
	ModeFrame
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeTimer:
		return "timer"
	case ModeFrame:
		return "frame"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the lifecycle state of one animated target.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNoHost is returned by Start in timer mode when no Host is configured.
var ErrNoHost = errors.New("animate: timer mode requires a host")

// ErrBadBounds is returned by Start for NaN or infinite bounds or step.
var ErrBadBounds = errors.New("animate: bounds and step must be finite")

// Frame is the result of one Tick.
type Frame struct {
	// Values maps each target advanced by this tick to its computed output.
	Values map[string]value.Value
	// Done is true once no animation is running.
	Done bool
}

type animation struct {
	target string
	param  string
	cur    float64
	stop   float64
	step   float64
	delay  time.Duration
	state  State
	cancel Cancel
}

// Animator steps Node values over time.
type Animator struct {
	g      *graph.Graph
	host   Host
	mode   Mode
	logger *slog.Logger
	onIdle func(target string)

	anims map[string]*animation
	order []string
}

// Option configures an Animator.
type Option func(*Animator)

// WithHost sets the timer host used in ModeTimer.
func WithHost(h Host) Option {
	return func(a *Animator) {
		a.host = h
	}
}

// WithMode selects the driving mode. Default: ModeTimer.
func WithMode(m Mode) Option {
	return func(a *Animator) {
		a.mode = m
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Animator) {
		a.logger = l
	}
}

// WithOnIdle registers a callback run when an animation reaches its stop
// value.
func WithOnIdle(fn func(target string)) Option {
	return func(a *Animator) {
		a.onIdle = fn
	}
}

// New creates an Animator writing into g.
func New(g *graph.Graph, opts ...Option) *Animator {
	a := &Animator{
		g:      g,
		mode:   ModeTimer,
		logger: slog.Default(),
		anims:  make(map[string]*animation),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode returns the driving mode.
func (a *Animator) Mode() Mode {
	return a.mode
}

// Start animates target from start toward stop by step.
//
// With param set the value is written through SetArg as a literal,
// otherwise through SetValue. The start value is written immediately. In
// ModeTimer the first tick is scheduled after delay. Starting a target that
// is already animated replaces its animation.
func (a *Animator) Start(target, param string, start, stop, step float64, delay time.Duration) error {
	for _, f := range []float64{start, stop, step} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrBadBounds
		}
	}
	if a.mode == ModeTimer && a.host == nil {
		return ErrNoHost
	}
	if !a.g.Has(target) {
		return fmt.Errorf("animate %s: %w", target, graph.ErrUnknownNode)
	}

	if prev, ok := a.anims[target]; ok {
		a.halt(prev)
	} else {
		a.order = append(a.order, target)
	}

	anim := &animation{
		target: target,
		param:  param,
		cur:    start,
		stop:   stop,
		step:   step,
		delay:  delay,
		state:  StateRunning,
	}
	a.anims[target] = anim

	if err := a.write(anim); err != nil {
		anim.state = StateIdle
		return err
	}
	a.logger.Info("animation started",
		"target", target,
		"param", param,
		"start", start,
		"stop", stop,
		"step", step,
		"mode", a.mode.String(),
	)
	a.schedule(anim)
	return nil
}

// Tick advances every running animation by one step and returns the
// computed outputs of the advanced targets.
func (a *Animator) Tick() Frame {
	frame := Frame{Values: make(map[string]value.Value)}
	for _, target := range a.order {
		anim := a.anims[target]
		if anim.state != StateRunning {
			continue
		}
		a.advance(anim)
		if v, err := a.g.Compute(target); err == nil {
			frame.Values[target] = v
		}
	}
	frame.Done = a.Active() == 0
	return frame
}

// PauseAll moves every running animation to Paused, remembering where it
// stands.
func (a *Animator) PauseAll() {
	for _, target := range a.order {
		anim := a.anims[target]
		if anim.state != StateRunning {
			continue
		}
		a.halt(anim)
		anim.state = StatePaused
		a.logger.Info("animation paused", "target", target, "at", anim.cur)
	}
}

// ResumeAll restarts every paused animation from its current value.
func (a *Animator) ResumeAll() {
	for _, target := range a.order {
		anim := a.anims[target]
		if anim.state != StatePaused {
			continue
		}
		anim.state = StateRunning
		a.logger.Info("animation resumed", "target", target, "at", anim.cur)
		a.schedule(anim)
	}
}

// Stop cancels the target's animation, leaving the value where it is.
// A tick already in progress is not interrupted.
func (a *Animator) Stop(target string) {
	anim, ok := a.anims[target]
	if !ok || anim.state == StateIdle {
		return
	}
	a.halt(anim)
	a.logger.Info("animation stopped", "target", target, "at", anim.cur)
}

// StopAll cancels every animation.
func (a *Animator) StopAll() {
	for _, target := range a.order {
		a.Stop(target)
	}
}

// State returns the target's animation state. Targets never animated are
// Idle.
func (a *Animator) State(target string) State {
	if anim, ok := a.anims[target]; ok {
		return anim.state
	}
	return StateIdle
}

// Current returns the last value written for target.
func (a *Animator) Current(target string) (float64, bool) {
	anim, ok := a.anims[target]
	if !ok {
		return 0, false
	}
	return anim.cur, true
}

// Active returns the number of running animations.
func (a *Animator) Active() int {
	n := 0
	for _, anim := range a.anims {
		if anim.state == StateRunning {
			n++
		}
	}
	return n
}

// advance performs one step. While cur has not reached stop it moves by
// step, clamped so it never crosses stop. Once it has, cur is pinned to
// exactly stop and the animation goes Idle.
func (a *Animator) advance(anim *animation) {
	if anim.step > 0 && anim.cur < anim.stop || anim.step < 0 && anim.cur > anim.stop {
		next := anim.cur + anim.step
		if anim.step > 0 && next > anim.stop || anim.step < 0 && next < anim.stop {
			next = anim.stop
		}
		anim.cur = next
		if err := a.write(anim); err != nil {
			a.fail(anim, err)
			return
		}
		a.logger.Debug("animation step", "target", anim.target, "value", anim.cur)
		a.schedule(anim)
		return
	}

	if anim.cur != anim.stop {
		anim.cur = anim.stop
		if err := a.write(anim); err != nil {
			a.fail(anim, err)
			return
		}
	}
	anim.state = StateIdle
	anim.cancel = nil
	a.logger.Info("animation finished", "target", anim.target, "value", anim.cur)
	if a.onIdle != nil {
		a.onIdle(anim.target)
	}
}

func (a *Animator) write(anim *animation) error {
	v := value.Float(anim.cur)
	if anim.param != "" {
		return a.g.SetArg(anim.target, anim.param, graph.Literal(v))
	}
	return a.g.SetValue(anim.target, v)
}

// schedule arms the next timer tick. Ticks fired for an animation that has
// since been replaced or halted are dropped.
func (a *Animator) schedule(anim *animation) {
	if a.mode != ModeTimer || anim.state != StateRunning {
		return
	}
	if anim.cancel != nil {
		anim.cancel()
	}
	anim.cancel = a.host.AfterFunc(anim.delay, func() {
		if a.anims[anim.target] != anim || anim.state != StateRunning {
			return
		}
		a.advance(anim)
	})
}

func (a *Animator) halt(anim *animation) {
	if anim.cancel != nil {
		anim.cancel()
		anim.cancel = nil
	}
	anim.state = StateIdle
}

func (a *Animator) fail(anim *animation, err error) {
	a.halt(anim)
	a.logger.Warn("animation aborted", "target", anim.target, "error", err)
	if a.onIdle != nil {
		a.onIdle(anim.target)
	}
}
