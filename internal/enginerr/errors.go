// Package enginerr defines the error taxonomy shared across the engine.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

const (
	// KindValidation covers bad caller input: empty questions, oversized
	// payloads, malformed metadata.
	KindValidation Kind = "validation"

	// KindConfiguration covers inconsistent settings detected at init.
	KindConfiguration Kind = "configuration"

	// KindTransientExternal covers retryable provider failures such as
	// rate limits and 5xx responses.
	KindTransientExternal Kind = "transient_external"

	// KindHardExternal covers non-retryable provider failures and
	// exceeded deadlines.
	KindHardExternal Kind = "hard_external"

	// KindEmptyResult marks the no-candidates-after-all-stages condition.
	// It is not a fault: callers render a no_results response.
	KindEmptyResult Kind = "empty_result"

	// KindInternal covers invariant violations inside the engine.
	KindInternal Kind = "internal"
)

// Error is the engine's error type. Stage names the pipeline stage that
// produced the error so explainability records can reference it.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an engine error.
func New(kind Kind, stage, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message}
}

// Wrap creates an engine error around a cause.
func Wrap(kind Kind, stage, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Cause: cause}
}

// Validation creates a validation error.
func Validation(stage, message string) *Error {
	return New(KindValidation, stage, message)
}

// Configuration creates a configuration error.
func Configuration(message string) *Error {
	return New(KindConfiguration, "init", message)
}

// Transient creates a transient external error.
func Transient(stage, message string, cause error) *Error {
	return Wrap(KindTransientExternal, stage, message, cause)
}

// Hard creates a hard external error.
func Hard(stage, message string, cause error) *Error {
	return Wrap(KindHardExternal, stage, message, cause)
}

// EmptyResult creates an empty-result marker error.
func EmptyResult(stage string) *Error {
	return New(KindEmptyResult, stage, "no candidates survived retrieval")
}

// Internal creates an internal error.
func Internal(stage, message string, cause error) *Error {
	return Wrap(KindInternal, stage, message, cause)
}

// KindOf returns the Kind of err, or KindInternal when err is not an
// engine error.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// StageOf returns the stage recorded on err, or "" when absent.
func StageOf(err error) string {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Stage
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err warrants the single retry granted to
// external calls.
func Retryable(err error) bool {
	return IsKind(err, KindTransientExternal)
}
