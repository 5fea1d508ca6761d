// Package apperrors defines the stable outcome taxonomy surfaced by the
// workflow entry points. Every terminal state of a run maps to one code so
// callers can distinguish "your question doesn't match this schema" from
// "the system gave up after retrying" from "something broke internally".
package apperrors

import (
	"errors"
	"fmt"
)

// OutcomeCode identifies a terminal workflow outcome.
type OutcomeCode string

const (
	// CodeNotAnswerable: the oracle judged that no table in the schema is
	// relevant to the question. Semantic rejection, never retried.
	CodeNotAnswerable OutcomeCode = "not_answerable"

	// CodeUnknownTables: the generated SQL references tables that do not
	// exist in the schema at all. Unrecoverable.
	CodeUnknownTables OutcomeCode = "unknown_tables"

	// CodeNoValidTables: none of the oracle's candidate table identifiers
	// resolved against the schema.
	CodeNoValidTables OutcomeCode = "no_valid_tables"

	// CodeGenerationFailed: the oracle did not produce a usable SQL
	// candidate (empty, wrong shape, or missing SELECT).
	CodeGenerationFailed OutcomeCode = "generation_failed"

	// CodeRetriesExhausted: the reflection budget ran out; the message
	// carries the most recent validation or execution error.
	CodeRetriesExhausted OutcomeCode = "retries_exhausted"

	// CodeInternal: an unexpected internal failure aborted the run.
	CodeInternal OutcomeCode = "internal_error"
)

// Outcome is a terminal workflow error with a stable code and a
// human-readable message.
type Outcome struct {
	Code    OutcomeCode
	Message string
	Cause   error
}

func (o *Outcome) Error() string {
	if o.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", o.Code, o.Message, o.Cause)
	}
	return fmt.Sprintf("%s: %s", o.Code, o.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (o *Outcome) Unwrap() error {
	return o.Cause
}

// NewOutcome creates a terminal outcome error.
func NewOutcome(code OutcomeCode, message string) *Outcome {
	return &Outcome{Code: code, Message: message}
}

// NewOutcomeWithCause creates a terminal outcome error wrapping a cause.
func NewOutcomeWithCause(code OutcomeCode, message string, cause error) *Outcome {
	return &Outcome{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the outcome code from an error, or CodeInternal if the
// error is not an *Outcome.
func CodeOf(err error) OutcomeCode {
	var o *Outcome
	if errors.As(err, &o) {
		return o.Code
	}
	return CodeInternal
}

// IsSemanticRejection reports whether the error is a user-facing "this
// question doesn't fit this schema" outcome rather than a system failure.
func IsSemanticRejection(err error) bool {
	switch CodeOf(err) {
	case CodeNotAnswerable, CodeUnknownTables, CodeNoValidTables:
		return true
	default:
		return false
	}
}
