package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/funcs"
)

// DocumentError is one problem found in a document file.
type DocumentError struct {
	File    string `json:"file"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Files  int             `json:"files"`
	Errors []DocumentError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Validate graph documents without building them",
		Long: `Validate YAML or CUE graph documents without building a graph.

Checks syntax, unknown fields, function names, parameter names, references
and the one-outbound-connection rule. Every problem is reported, not just
the first.

Examples:
  mathgraph validate wave.yaml
  mathgraph validate graphs/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	lib := funcs.Builtins()

	var errs []DocumentError
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		errs = append(errs, validateFile(path, lib)...)
	}

	result := ValidationResult{Valid: len(errs) == 0, Files: len(paths), Errors: errs}
	if !result.Valid {
		msg := fmt.Sprintf("validation failed with %d error(s)", len(errs))
		return formatter.Fail(ExitFailure, ErrCodeInvalid, msg, result)
	}
	return formatter.Success(result)
}

// validateFile parses and validates one document.
func validateFile(path string, lib *funcs.Library) []DocumentError {
	doc, err := document.ReadFile(path)
	if err != nil {
		de := DocumentError{File: path, Code: ErrCodeParse, Message: err.Error()}
		var pe *document.ParseError
		if errors.As(err, &pe) {
			de.Field = pe.Field
			de.Message = pe.Message
			if pe.Pos.IsValid() {
				de.Line = pe.Pos.Line()
			}
		}
		return []DocumentError{de}
	}

	var out []DocumentError
	for _, ve := range document.Validate(doc, lib) {
		out = append(out, DocumentError{
			File:    path,
			Field:   ve.Field,
			Code:    ve.Code,
			Message: ve.Message,
		})
	}
	return out
}

func (r ValidationResult) writeText(w io.Writer) {
	if r.Valid {
		fmt.Fprintf(w, "✓ %d document(s) valid\n", r.Files)
		return
	}
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range r.Errors {
		loc := e.File
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
		fmt.Fprintln(w, loc)
		if e.Field != "" {
			fmt.Fprintf(w, "  %s %s: %s\n\n", e.Code, e.Field, e.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
		}
	}
}
