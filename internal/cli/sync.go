package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/cobra"

	"github.com/roach88/mathgraph/internal/sourcesync"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Document string
}

// SyncResult is the outcome of a source sync.
type SyncResult struct {
	Assigned []string   `json:"assigned"`
	Helpers  []string   `json:"helpers,omitempty"`
	State    GraphState `json:"state"`
}

// SyncDiagnostic is one sync problem with its source position.
type SyncDiagnostic struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <source.hcl>",
		Short: "Apply HCL source to a graph",
		Long: `Apply HCL assignments to a graph and print every node.

Each top-level assignment names a node. Literals create value nodes, calls
create function nodes, and operators or nested calls become helper nodes:

  a = 2
  b = add(a, 2)
  c = b * k

With --document the source is applied on top of a loaded graph. Failed
assignments are reported with their source range; the others still apply.

Examples:
  mathgraph sync model.hcl
  mathgraph sync tweaks.hcl --document wave.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Document, "document", "", "graph document to load before syncing")

	return cmd
}

func runSync(opts *SyncOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("source not found: %s", path))
		}
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	s := newSession(opts.RootOptions, cmd)
	if opts.Document != "" {
		doc, err := readDocument(opts.Document)
		if err != nil {
			return err
		}
		if err := s.apply(doc); err != nil {
			return err
		}
		formatter.VerboseLog("Loaded %d node(s) from %s", len(doc.Nodes), opts.Document)
	}

	syncer := sourcesync.New(s.g, s.lib, sourcesync.WithLogger(s.logger))
	res, err := syncer.Apply(path, src)
	if err != nil {
		var se *sourcesync.SyncError
		if !errors.As(err, &se) {
			return WrapExitError(ExitFailure, "sync failed", err)
		}
		return outputSyncDiagnostics(formatter, path, src, se.Diags)
	}
	formatter.VerboseLog("Applied %d assignment(s), %d helper(s)", len(res.Assigned), len(res.Helpers))

	result := SyncResult{
		Assigned: res.Assigned,
		Helpers:  res.Helpers,
		State:    s.state(""),
	}
	if result.Assigned == nil {
		result.Assigned = []string{}
	}
	return formatter.Success(result)
}

func (r SyncResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "synced %d assignment(s)\n", len(r.Assigned))
	r.State.writeText(w)
}

// outputSyncDiagnostics reports diagnostics, with source snippets in text
// format.
func outputSyncDiagnostics(formatter *OutputFormatter, path string, src []byte, diags hcl.Diagnostics) error {
	fail := &ExitError{
		Code:    ExitFailure,
		Reason:  ErrCodeSync,
		Message: fmt.Sprintf("sync failed with %d diagnostic(s)", len(diags)),
		written: true,
	}

	if formatter.Format == "json" {
		details := make([]SyncDiagnostic, 0, len(diags))
		for _, d := range diags {
			sd := SyncDiagnostic{Summary: d.Summary, Detail: d.Detail}
			if d.Subject != nil {
				sd.Line = d.Subject.Start.Line
				sd.Column = d.Subject.Start.Column
			}
			details = append(details, sd)
		}
		if err := formatter.Error(ErrCodeSync, fail.Message, details); err != nil {
			return err
		}
		return fail
	}

	// Reparse for the snippet writer; it only needs the file bytes.
	parser := hclparse.NewParser()
	_, _ = parser.ParseHCL(src, path)
	writer := hcl.NewDiagnosticTextWriter(formatter.Writer, parser.Files(), 78, false)
	if err := writer.WriteDiagnostics(diags); err != nil {
		return err
	}
	return fail
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	return formatter.Fail(ExitCommandError, code, message, nil)
}
