package cli

import (
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Set []string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Load a graph document and print every node",
		Long: `Load a YAML or CUE graph document, apply assignments and print the
computed value of every node.

Assignments run in order after the document is loaded. "node=value"
replaces a node's value, "node.param=value" binds a parameter to a literal.
Values are parsed as YAML.

Examples:
  mathgraph run wave.yaml
  mathgraph run wave.cue --set k=4 --set y.x=0.5
  mathgraph run wave.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "assignment node=value or node.param=value (repeatable)")

	return cmd
}

func runGraph(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	s := newSession(opts.RootOptions, cmd)
	if err := s.apply(doc); err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %d node(s) from %s", len(doc.Nodes), path)

	for _, assignment := range opts.Set {
		if err := s.set(assignment); err != nil {
			return WrapExitError(ExitFailure, "failed to apply assignment", err)
		}
		formatter.VerboseLog("Applied %s", assignment)
	}

	return formatter.Success(s.state(doc.Name))
}
