// Package errors provides severity-aware error types for the importer.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ImportError is a structured error with context.
type ImportError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Resource    string   `json:"resource,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *ImportError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s: %s (resource: %s)", e.Severity, e.Code, e.Message, e.Resource)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeNameCollision      = "AlreadyExistsException"
	ErrCodeMissingRoot        = "MISSING_ROOT_RESOURCE"
	ErrCodeInvalidPath        = "INVALID_PATH"
	ErrCodeMissingIntegration = "MISSING_INTEGRATION"
	ErrCodeNotFound           = "NOT_FOUND"
)

// MsgNameCollision is reported verbatim when an API title is already taken.
const MsgNameCollision = "API with this name already exists."

// NewNameCollisionError creates an error for an API title that already exists remotely.
func NewNameCollisionError(title string) *ImportError {
	return &ImportError{
		Code:        ErrCodeNameCollision,
		Message:     MsgNameCollision,
		Severity:    SeverityFatal,
		Resource:    title,
		Recoverable: false,
	}
}

// NewMissingRootError reports a remote API without its implicit "/" resource.
func NewMissingRootError(apiID string) *ImportError {
	return &ImportError{
		Code:        ErrCodeMissingRoot,
		Message:     "remote API has no root resource",
		Severity:    SeverityFatal,
		Resource:    apiID,
		Recoverable: false,
	}
}

// NewInvalidPathError creates an error for a malformed path key.
func NewInvalidPathError(path, reason string) *ImportError {
	return &ImportError{
		Code:        ErrCodeInvalidPath,
		Message:     reason,
		Severity:    SeverityError,
		Resource:    path,
		Recoverable: false,
	}
}

// NewMissingIntegrationError creates an error for an operation without an integration block.
func NewMissingIntegrationError(verb, path string) *ImportError {
	return &ImportError{
		Code:        ErrCodeMissingIntegration,
		Message:     fmt.Sprintf("%s has no x-amazon-apigateway-integration", verb),
		Severity:    SeverityError,
		Resource:    path,
		Recoverable: false,
	}
}

// NewNotFoundError reports that no remote API carries the given title.
func NewNotFoundError(title string) *ImportError {
	return &ImportError{
		Code:        ErrCodeNotFound,
		Message:     "no API with this name",
		Severity:    SeverityError,
		Resource:    title,
		Recoverable: true,
	}
}

// HasCode reports whether err wraps an ImportError with the given code.
func HasCode(err error, code string) bool {
	var ie *ImportError
	if stderrors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// IsNameCollision reports whether err is a name-collision failure.
func IsNameCollision(err error) bool {
	return HasCode(err, ErrCodeNameCollision)
}
