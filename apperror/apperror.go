// Package apperror defines the application's error taxonomy. Every failure
// that can reach an API route boundary is represented as an *AppError
// carrying a Kind tag; handlers compare tags, never message strings, and
// convert the error to a uniform {"error": "..."} JSON body with the HTTP
// status that matches the tag.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// UnknownError is for unspecified errors.
	UnknownError Kind = iota
	// ValidationError represents an input validation failure (missing or
	// malformed fields).
	ValidationError
	// AuthError represents an authentication failure (invalid credentials,
	// missing or invalid access token).
	AuthError
	// ForbiddenError represents a rejected credential that was presented
	// (expired or invalid signed token).
	ForbiddenError
	// NotFoundError represents a missing resource.
	NotFoundError
	// ConflictError represents a uniqueness conflict, e.g. a duplicate
	// account.
	ConflictError
	// DatabaseError represents a persistence-layer failure.
	DatabaseError
	// ExternalServiceError represents a failure of an outside collaborator
	// (mail transport, OAuth provider, catalog API).
	ExternalServiceError
	// ConfigError represents an invalid application configuration.
	ConfigError
	// InternalError represents any other server-side failure.
	InternalError
)

// AppError is the application's error type. It wraps an optional underlying
// error for debugging while exposing only Message to clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, enabling errors.Is / errors.As over
// the wrapped chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status code.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case ValidationError:
		return http.StatusBadRequest
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case ExternalServiceError, DatabaseError, ConfigError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError of an arbitrary kind.
func New(kind Kind, message string, underlying error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: underlying}
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string, underlying error) *AppError {
	return New(ValidationError, message, underlying)
}

// NewAuthError creates an AuthError.
func NewAuthError(message string, underlying error) *AppError {
	return New(AuthError, message, underlying)
}

// NewForbiddenError creates a ForbiddenError.
func NewForbiddenError(message string, underlying error) *AppError {
	return New(ForbiddenError, message, underlying)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(message string, underlying error) *AppError {
	return New(NotFoundError, message, underlying)
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string, underlying error) *AppError {
	return New(ConflictError, message, underlying)
}

// NewDatabaseError creates a DatabaseError.
func NewDatabaseError(message string, underlying error) *AppError {
	return New(DatabaseError, message, underlying)
}

// NewExternalServiceError creates an ExternalServiceError.
func NewExternalServiceError(message string, underlying error) *AppError {
	return New(ExternalServiceError, message, underlying)
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, underlying error) *AppError {
	return New(ConfigError, message, underlying)
}

// NewInternalError creates an InternalError.
func NewInternalError(message string, underlying error) *AppError {
	return New(InternalError, message, underlying)
}

// ErrorResponse is the JSON body returned for any failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResponse converts the error to its client-visible representation. Only
// Message is exposed; the underlying error stays server-side.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError attempts to interpret err as an *AppError.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the Kind of err, or UnknownError for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := FromError(err); ok {
		return ae.Kind
	}
	return UnknownError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return IsKind(err, NotFoundError) }

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool { return IsKind(err, AuthError) }

// IsForbidden reports whether err is a ForbiddenError.
func IsForbidden(err error) bool { return IsKind(err, ForbiddenError) }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool { return IsKind(err, ConflictError) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return IsKind(err, ValidationError) }
