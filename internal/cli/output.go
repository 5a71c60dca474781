package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/persist"
	"github.com/roach88/mathgraph/internal/sourcesync"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Graph failure (invalid document, sync diagnostics, failed scenarios)
	ExitCommandError = 2 // Command error (missing file, unreadable save file, bad flags)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric  = "E001" // unclassified failure
	ErrCodeNotFound = "E002" // file, graph or revision not found
	ErrCodeParse    = "E003" // document could not be parsed
	ErrCodeApply    = "E004" // document or assignment could not be applied to a graph
	ErrCodeSync     = "E005" // source sync reported diagnostics
	ErrCodeStore    = "E006" // save file could not be opened or written
	ErrCodeInvalid  = "E007" // document failed validation
	ErrCodeScenario = "E008" // scenario assertions or golden trace failed
)

// ExitError is a command failure with its process exit code and, when
// known, its response code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Reason  string // response code; empty means classify Err
	Message string
	Err     error

	written bool // already reported to the user by the formatter
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Classify maps a command error to its response code.
func Classify(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reason != "" {
		return exitErr.Reason
	}

	var (
		parseErr *document.ParseError
		loadErr  *document.LoadError
		syncErr  *sourcesync.SyncError
		graphErr *graph.Error
	)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, persist.ErrNotFound):
		return ErrCodeNotFound
	case errors.As(err, &parseErr):
		return ErrCodeParse
	case errors.As(err, &syncErr):
		return ErrCodeSync
	case errors.As(err, &loadErr), errors.As(err, &graphErr):
		return ErrCodeApply
	}
	return ErrCodeGeneric
}

// OutputFormatter writes command results as JSON or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; keeps JSON on Writer clean
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textWriter is implemented by results with a text rendering.
type textWriter interface {
	writeText(w io.Writer)
}

// Success writes a result.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if tw, ok := data.(textWriter); ok {
		tw.writeText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail writes a failed result and returns the ExitError the command
// should return. In JSON, data rides in the envelope next to the error;
// in text, data's own rendering replaces the generic error line.
func (f *OutputFormatter) Fail(exit int, code, message string, data any) error {
	fail := &ExitError{Code: exit, Reason: code, Message: message, written: true}
	if f.Format == "json" {
		resp := CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		}
		if err := f.encode(resp); err != nil {
			return err
		}
		return fail
	}
	if tw, ok := data.(textWriter); ok {
		tw.writeText(f.Writer)
		return fail
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return fail
}

// Error writes an error with optional details.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a line to ErrWriter (or Writer) under --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}
