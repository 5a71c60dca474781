package sourcesync

import (
	"github.com/hashicorp/hcl/v2"
)

// SyncError reports source that could not be applied to the graph.
//
// Diags carries one diagnostic per failed assignment with its source range.
// Err is the first graph error behind them, if any, so callers can match
// graph sentinels with errors.Is.
type SyncError struct {
	Diags hcl.Diagnostics
	Err   error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return e.Diags.Error()
}

// Unwrap returns the underlying graph error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

func diagnostic(summary, detail string, rng hcl.Range) *hcl.Diagnostic {
	r := rng
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &r,
	}
}
