// Package errors provides centralized error definitions and error handling
// utilities for the mandelgrid codebase. It defines the three error families
// the engine distinguishes, constructors with context wrapping, and
// classification helpers.
//
// # Error Types
//
//   - ParseError: a malformed base-32 numeric literal or protocol line
//   - DomainError: structurally valid input that is out of domain
//     (non-positive precision, negative iteration budget, negative escape
//     radius, non-finite operand)
//   - WorkerError: a failure of an engine peer process (unexpected exit,
//     desynchronized stream, refused request)
//
// Parse and domain failures are always recovered locally: at the protocol
// boundary both surface as a BAD_CMD response and the handler keeps
// accepting input. Reaching the global iteration safety cap is not an error
// at all; the affected point keeps its last known state.
//
// # Usage
//
//	if errors.IsBadInput(err) {
//	    respond(protocol.BadCmd)
//	}
//
//	var werr *errors.WorkerError
//	if errors.As(err, &werr) && werr.IsRetryable() { ... }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience, so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Codec and protocol sentinel errors.
var (
	// ErrMalformedLiteral indicates text that is not a valid base-32 literal.
	ErrMalformedLiteral = New("malformed base-32 literal")
	// ErrNonFinite indicates one of the reserved non-finite tokens
	// (@NaN@, @Inf@, -@Inf@), which the kernel cannot operate on.
	ErrNonFinite = New("non-finite value")
	// ErrMalformedLine indicates a protocol line that does not match any command.
	ErrMalformedLine = New("malformed protocol line")
	// ErrHandlerTerminated indicates input after EXIT was acknowledged.
	ErrHandlerTerminated = New("handler terminated")
)

// Domain sentinel errors.
var (
	// ErrPrecisionRange indicates a precision that is not a positive bit count.
	ErrPrecisionRange = New("precision out of range")
	// ErrIterationRange indicates a negative iteration budget.
	ErrIterationRange = New("iteration budget out of range")
	// ErrRadiusRange indicates a negative escape radius.
	ErrRadiusRange = New("escape radius out of range")
	// ErrMagnificationRange indicates a zoom factor not greater than one.
	ErrMagnificationRange = New("magnification out of range")
)

// Selector sentinel errors.
var (
	// ErrNoBoundary indicates a grid with no escaped boundary points to
	// zoom toward.
	ErrNoBoundary = New("no boundary points found")
)

// Worker sentinel errors.
var (
	// ErrWorkerClosed indicates a call on a worker after Close.
	ErrWorkerClosed = New("worker closed")
	// ErrWorkerExited indicates the peer process terminated unexpectedly.
	ErrWorkerExited = New("worker process exited")
	// ErrBadResponse indicates a response line the caller cannot interpret,
	// which desynchronizes the stream and poisons the worker.
	ErrBadResponse = New("unparseable worker response")
	// ErrRequestRefused indicates the peer answered BAD_CMD.
	ErrRequestRefused = New("request refused by worker")
)

// ParseError represents a failure to interpret a numeric literal or a
// protocol line. Input is the offending text, truncated by the caller if
// unreasonably long.
type ParseError struct {
	Input string
	cause error
}

// NewParseError creates a ParseError wrapping cause for the given input.
func NewParseError(input string, cause error) *ParseError {
	return &ParseError{Input: input, cause: cause}
}

func (e *ParseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("parse %q: %v", e.Input, e.cause)
	}
	return fmt.Sprintf("parse %q", e.Input)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Is reports a match for any *ParseError target, so callers can test the
// family with errors.Is(err, &ParseError{}).
func (e *ParseError) Is(target error) bool {
	_, ok := target.(*ParseError)
	return ok
}

// DomainError represents input that parsed cleanly but violates a domain
// constraint of the iteration kernel.
type DomainError struct {
	Field string
	Value any
	cause error
}

// NewDomainError creates a DomainError for the named field.
func NewDomainError(field string, value any, cause error) *DomainError {
	return &DomainError{Field: field, Value: value, cause: cause}
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("domain error [field=%s, value=%v]: %v", e.Field, e.Value, e.cause)
	}
	return fmt.Sprintf("domain error [field=%s, value=%v]", e.Field, e.Value)
}

func (e *DomainError) Unwrap() error { return e.cause }

func (e *DomainError) Is(target error) bool {
	_, ok := target.(*DomainError)
	return ok
}

// WorkerError represents a failure of an engine peer process. WorkerID
// identifies the pool slot; Retryable reports whether the failed request may
// succeed on a different worker (true for peer death, false for a request
// the peer examined and refused).
type WorkerError struct {
	WorkerID  int
	Retryable bool
	cause     error
}

// NewWorkerError creates a WorkerError for the given pool slot.
func NewWorkerError(workerID int, cause error, retryable bool) *WorkerError {
	return &WorkerError{WorkerID: workerID, Retryable: retryable, cause: cause}
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker error [worker=%d]: %v", e.WorkerID, e.cause)
}

func (e *WorkerError) Unwrap() error { return e.cause }

func (e *WorkerError) Is(target error) bool {
	_, ok := target.(*WorkerError)
	return ok
}

// IsRetryable reports whether the failed request may succeed elsewhere.
func (e *WorkerError) IsRetryable() bool { return e.Retryable }

// IsBadInput reports whether err belongs to the families that the protocol
// boundary folds into a BAD_CMD response: parse failures and domain
// violations.
func IsBadInput(err error) bool {
	if err == nil {
		return false
	}
	var perr *ParseError
	var derr *DomainError
	return As(err, &perr) || As(err, &derr)
}

// IsRetryable reports whether err represents a transient condition worth one
// more attempt on a fresh worker.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var werr *WorkerError
	if As(err, &werr) {
		return werr.IsRetryable()
	}
	return false
}

// Wrap wraps an error with additional context, preserving the wrapped chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
