package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mathgraph/internal/animate"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// maxFrames bounds a frame-mode run.
const maxFrames = 100000

// AnimateOptions holds flags for the animate command.
type AnimateOptions struct {
	*RootOptions
	Node   string
	Param  string
	Start  float64
	Stop   float64
	Step   float64
	Delay  time.Duration
	Frames bool
}

// Frame is the animated node's value after one step.
type Frame struct {
	Seq   int64 `json:"seq"`
	Value any   `json:"value"`
}

// AnimateResult is the outcome of an animation run.
type AnimateResult struct {
	Node   string     `json:"node"`
	Param  string     `json:"param,omitempty"`
	Mode   string     `json:"mode"`
	Frames []Frame    `json:"frames"`
	State  GraphState `json:"state"`
}

// NewAnimateCommand creates the animate command.
func NewAnimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnimateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "animate <document>",
		Short: "Animate a node value from start to stop",
		Long: `Load a graph document and step a value from start to stop.

With --param the node's parameter is bound to each step, otherwise the
node's own value is replaced. By default steps run on the wall clock with
--delay between them; with --frames they run back to back, one per frame.
Every step propagates through the graph and refreshes the output.

Examples:
  mathgraph animate wave.yaml --node k --start 0 --stop 2 --step 0.25
  mathgraph animate wave.yaml --node y --param x --stop 6.28 --step 0.1 --delay 16ms
  mathgraph animate wave.yaml --node k --stop 1 --step 0.1 --frames --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnimate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "node to animate (required)")
	cmd.Flags().StringVar(&opts.Param, "param", "", "parameter to bind instead of the node value")
	cmd.Flags().Float64Var(&opts.Start, "start", 0, "start value")
	cmd.Flags().Float64Var(&opts.Stop, "stop", 1, "stop value")
	cmd.Flags().Float64Var(&opts.Step, "step", 0.1, "step size (negative to count down)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 50*time.Millisecond, "delay between steps in timer mode")
	cmd.Flags().BoolVar(&opts.Frames, "frames", false, "step once per frame instead of on a timer")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func runAnimate(opts *AnimateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Step == 0 {
		return NewExitError(ExitCommandError, "--step must be non-zero")
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	// Only refreshes after loading are animation frames.
	var frames []Frame
	recording := false
	record := func(ev graph.Event) {
		if recording && ev.Type == graph.EventRefresh && ev.Node == opts.Node {
			frames = append(frames, Frame{Seq: ev.Seq, Value: value.ToNative(ev.Value)})
		}
	}

	s := newSession(opts.RootOptions, cmd, graph.WithObserver(record))
	if err := s.apply(doc); err != nil {
		return err
	}
	recording = true

	mode := animate.ModeTimer
	if opts.Frames {
		mode = animate.ModeFrame
	}
	formatter.VerboseLog("Animating %s from %v to %v by %v (%s)", opts.Node, opts.Start, opts.Stop, opts.Step, mode)

	if opts.Frames {
		err = animateFrames(opts, s)
	} else {
		err = animateTimer(opts, s, cmd)
	}
	if err != nil {
		return err
	}

	result := AnimateResult{
		Node:   opts.Node,
		Param:  opts.Param,
		Mode:   mode.String(),
		Frames: frames,
		State:  s.state(doc.Name),
	}
	if result.Frames == nil {
		result.Frames = []Frame{}
	}
	return formatter.Success(result)
}

func (r AnimateResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "animated %s over %d frame(s)\n", r.Node, len(r.Frames))
	r.State.writeText(w)
}

// animateFrames ticks a frame-mode animator until it goes idle.
func animateFrames(opts *AnimateOptions, s *session) error {
	anim := animate.New(s.g, animate.WithMode(animate.ModeFrame), animate.WithLogger(s.logger))
	if err := anim.Start(opts.Node, opts.Param, opts.Start, opts.Stop, opts.Step, 0); err != nil {
		return WrapExitError(ExitFailure, "failed to start animation", err)
	}
	for i := 0; i < maxFrames; i++ {
		if anim.Tick().Done {
			return nil
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("animation did not finish within %d frames", maxFrames))
}

// animateTimer runs a timer-mode animator on the wall clock. Timer
// callbacks are funnelled through a Loop running on this goroutine.
func animateTimer(opts *AnimateOptions, s *session, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := animate.NewLoop(s.logger)
	var anim *animate.Animator
	anim = animate.New(s.g,
		animate.WithHost(animate.WallHost{Loop: loop}),
		animate.WithLogger(s.logger),
		animate.WithOnIdle(func(string) {
			if anim.Active() == 0 {
				loop.Close()
			}
		}),
	)
	if err := anim.Start(opts.Node, opts.Param, opts.Start, opts.Stop, opts.Step, opts.Delay); err != nil {
		return WrapExitError(ExitFailure, "failed to start animation", err)
	}

	err := loop.Run(ctx)
	anim.StopAll()
	if err != nil && err != context.Canceled {
		return WrapExitError(ExitFailure, "animation loop failed", err)
	}
	return nil
}
