package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType classifies oracle failures.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeShape     ErrorType = "shape" // response did not match the requested structure
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured oracle error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Hint       time.Duration // server-provided retry-after, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// RetryAfter implements the retry.HintedError interface.
func (e *Error) RetryAfter() time.Duration {
	return e.Hint
}

// NewError creates a new structured oracle error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

// ClassifyError categorizes an arbitrary transport error into a
// structured *Error so the retry layer can decide transient vs permanent.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var oracleErr *Error
	if errors.As(err, &oracleErr) {
		return oracleErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classified := func(e *Error) *Error {
		e.StatusCode = statusCode
		return e
	}

	// Authentication failures are permanent without a config change.
	if statusCode == 401 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") {
		return classified(NewError(ErrorTypeAuth, "authentication failed", false, err))
	}

	// Unknown model is permanent too.
	if strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")) {
		return classified(NewError(ErrorTypeModel, "model not found", false, err))
	}

	if statusCode == 404 {
		return classified(NewError(ErrorTypeEndpoint, "endpoint not found", false, err))
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") {
		return classified(NewError(ErrorTypeEndpoint, "connection failed", true, err))
	}

	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return classified(NewError(ErrorTypeEndpoint, "request timeout", true, err))
	}

	if statusCode == 429 || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") {
		return classified(NewError(ErrorTypeRateLimit, "rate limited", true, err))
	}

	if statusCode >= 500 {
		return classified(NewError(ErrorTypeEndpoint, "server error", true, err))
	}

	return classified(NewError(ErrorTypeUnknown, "oracle error", false, err))
}

// IsRetryable returns true if the error is a retryable oracle error.
func IsRetryable(err error) bool {
	var oracleErr *Error
	if errors.As(err, &oracleErr) {
		return oracleErr.Retryable
	}
	return false
}
