// Package apperr defines the typed error kinds shared across the
// retrieval/agent/eval subsystem so callers can branch on failure class
// without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and HTTP-status-mapping purposes.
type Kind string

const (
	BadInput                 Kind = "bad_input"
	StoreUnavailable         Kind = "store_unavailable"
	BadQuery                 Kind = "bad_query"
	ConstraintViolation      Kind = "constraint_violation"
	EmbedderUnavailable      Kind = "embedder_unavailable"
	EmbedderProtocolError    Kind = "embedder_protocol_error"
	LLMUnavailable           Kind = "llm_unavailable"
	Timeout                  Kind = "timeout"
	ToolInputRejected        Kind = "tool_input_rejected"
	InternalInvariantViolated Kind = "internal_invariant_violated"
)

// Error wraps an underlying cause with a Kind so HTTP handlers and the
// eval harness can decide retry/propagation/status-code behavior.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retriable reports whether the top-level evaluation harness should retry
// an operation that failed with this error.
func Retriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == StoreUnavailable || e.Kind == EmbedderUnavailable || e.Kind == LLMUnavailable
	}
	return false
}
