// Package errors defines stable error codes for vulnmap run-level failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidInput indicates the supplied file tree is empty or unreadable
	InvalidInput ErrorCode = "INVALID_INPUT"
	// Cancelled indicates the run observed a cancellation signal
	Cancelled ErrorCode = "CANCELLED"
	// CloneFailed indicates the repository could not be fetched
	CloneFailed ErrorCode = "CLONE_FAILED"
	// StorageError indicates the run history database failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// RunNotFound indicates a stored run id does not exist
	RunNotFound ErrorCode = "RUN_NOT_FOUND"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalyzerError represents a vulnmap error with code and message
type AnalyzerError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new AnalyzerError
func New(code ErrorCode, message string, cause error) *AnalyzerError {
	return &AnalyzerError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AnalyzerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalyzerError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnalyzerError) WithDetails(details interface{}) *AnalyzerError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error chain. Returns InternalError
// for errors that did not originate in this package.
func CodeOf(err error) ErrorCode {
	var ae *AnalyzerError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCancelled reports whether the error chain carries the Cancelled code.
func IsCancelled(err error) bool {
	return CodeOf(err) == Cancelled
}
