package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is against these; *Error wraps them with
// Node and parameter context.
var (
	// ErrUnknownNode is returned when a name is absent from the Graph,
	// including a Reference whose target does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownParam is returned when a key is not a parameter of the Node.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrSelfReference is returned when a Node's argument references itself.
	ErrSelfReference = errors.New("node cannot reference itself")

	// ErrInvalidName is returned for empty Node names.
	ErrInvalidName = errors.New("invalid node name")

	// ErrCycle is reported when evaluation or propagation re-enters a Node
	// already on the current walk.
	ErrCycle = errors.New("binding cycle detected")

	// ErrDepthExceeded is reported when evaluation nests deeper than the
	// configured maximum.
	ErrDepthExceeded = errors.New("evaluation depth exceeded")
)

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	ErrCodeUnknownNode      ErrorCode = "UNKNOWN_NODE"
	ErrCodeUnknownParam     ErrorCode = "UNKNOWN_PARAM"
	ErrCodeSelfReference    ErrorCode = "SELF_REFERENCE"
	ErrCodeInvalidName      ErrorCode = "INVALID_NAME"
	ErrCodeCycleDetected    ErrorCode = "CYCLE_DETECTED"
	ErrCodeDepthExceeded    ErrorCode = "DEPTH_EXCEEDED"
	ErrCodeInvocationFailed ErrorCode = "INVOCATION_FAILED"
)

// Error is a graph error with structured context.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Node is the Node the operation targeted.
	Node string

	// Param is the parameter involved, if any.
	Param string

	// Err is the sentinel or underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Node != "" && e.Param != "":
		return fmt.Sprintf("%s: %v (node=%s, param=%s)", e.Code, e.Err, e.Node, e.Param)
	case e.Node != "":
		return fmt.Sprintf("%s: %v (node=%s)", e.Code, e.Err, e.Node)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

// Unwrap returns the sentinel or underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func unknownNode(name string) *Error {
	return &Error{Code: ErrCodeUnknownNode, Node: name, Err: ErrUnknownNode}
}

func unknownParam(node, param string) *Error {
	return &Error{Code: ErrCodeUnknownParam, Node: node, Param: param, Err: ErrUnknownParam}
}

func selfReference(node, param string) *Error {
	return &Error{Code: ErrCodeSelfReference, Node: node, Param: param, Err: ErrSelfReference}
}

func cycleError(node string) *Error {
	return &Error{Code: ErrCodeCycleDetected, Node: node, Err: ErrCycle}
}

func depthError(node string, limit int) *Error {
	return &Error{Code: ErrCodeDepthExceeded, Node: node, Err: fmt.Errorf("%w (limit %d)", ErrDepthExceeded, limit)}
}

func invocationError(node string, err error) *Error {
	return &Error{Code: ErrCodeInvocationFailed, Node: node, Err: err}
}

// IsUnknownNode returns true if err reports a missing Node.
func IsUnknownNode(err error) bool {
	return errors.Is(err, ErrUnknownNode)
}

// IsCycleError returns true if err reports a binding cycle.
func IsCycleError(err error) bool {
	return errors.Is(err, ErrCycle)
}

// IsInvocationError returns true if err reports a failed invocation.
func IsInvocationError(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeInvocationFailed
	}
	return false
}
