package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mathgraph/internal/persist"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Database string
	Name     string
}

// RevisionInfo describes one saved revision.
type RevisionInfo struct {
	ID    string `json:"id"`
	Graph string `json:"graph"`
	Seq   int64  `json:"seq"`
	Hash  string `json:"hash"`
	Nodes int    `json:"nodes"`
}

func revisionInfo(rev persist.Revision) RevisionInfo {
	return RevisionInfo{ID: rev.ID, Graph: rev.Graph, Seq: rev.Seq, Hash: rev.Hash, Nodes: rev.Nodes}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <document>",
		Short: "Save a graph document to a save file",
		Long: `Load a graph document and save it as a new revision in a SQLite save
file (created if it does not exist).

The graph is named by --name, else by the document's name, else by the
file name. Saving content identical to the latest revision is a no-op.

Examples:
  mathgraph save wave.yaml --db graphs.db
  mathgraph save wave.cue --db graphs.db --name wave-draft`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite save file (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "graph name")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSave(opts *SaveOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	s := newSession(opts.RootOptions, cmd)
	if err := s.apply(doc); err != nil {
		return err
	}

	name := opts.Name
	if name == "" {
		name = doc.Name
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	st, err := openStore(opts.Database, s.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			s.logger.Error("error closing save file", "error", closeErr)
		}
	}()

	rev, err := st.Save(commandContext(cmd), name, s.g, layoutOf(doc))
	if err != nil {
		return &ExitError{Code: ExitFailure, Reason: ErrCodeStore, Message: "failed to save graph", Err: err}
	}
	formatter.VerboseLog("Saved %s revision %d (%s)", name, rev.Seq, rev.ID)

	return formatter.Success(revisionInfo(rev))
}

func (r RevisionInfo) writeText(w io.Writer) {
	fmt.Fprintf(w, "saved %s revision %d (%d nodes) %s\n", r.Graph, r.Seq, r.Nodes, r.ID)
}

// openStore opens a save file, mapping failures to a command error.
func openStore(path string, logger *slog.Logger) (*persist.Store, error) {
	st, err := persist.Open(path, persist.WithLogger(logger))
	if err != nil {
		return nil, &ExitError{
			Code:    ExitCommandError,
			Reason:  ErrCodeStore,
			Message: fmt.Sprintf("failed to open save file %s", path),
			Err:     err,
		}
	}
	return st, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
