// Package errors provides ReCiSt's structured error type, shared by every
// agent and adapter so that HTTP status mapping, safe client-facing
// messages, and structured log fields stay consistent across the pipeline.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError both for HTTP status mapping and for
// the remediation-pipeline error taxonomy of spec §7.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeInternal   ErrorType = "internal"

	// Domain taxonomy, spec.md §7.
	ErrorTypeBackendUnavailable  ErrorType = "backend_unavailable"
	ErrorTypeBackendTimeout      ErrorType = "backend_timeout"
	ErrorTypeParse               ErrorType = "parse_error"
	ErrorTypeInvariantViolation  ErrorType = "invariant_violation"
	ErrorTypeAction               ErrorType = "action_error"
	ErrorTypeVerificationFailure ErrorType = "verification_failure"
	ErrorTypePolicyForbidden     ErrorType = "policy_forbidden"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:          http.StatusBadRequest,
	ErrorTypeAuth:                http.StatusUnauthorized,
	ErrorTypeNotFound:            http.StatusNotFound,
	ErrorTypeConflict:            http.StatusConflict,
	ErrorTypeTimeout:             http.StatusRequestTimeout,
	ErrorTypeRateLimit:           http.StatusTooManyRequests,
	ErrorTypeDatabase:            http.StatusInternalServerError,
	ErrorTypeNetwork:             http.StatusInternalServerError,
	ErrorTypeInternal:            http.StatusInternalServerError,
	ErrorTypeBackendUnavailable:  http.StatusServiceUnavailable,
	ErrorTypeBackendTimeout:      http.StatusGatewayTimeout,
	ErrorTypeParse:               http.StatusUnprocessableEntity,
	ErrorTypeInvariantViolation:  http.StatusInternalServerError,
	ErrorTypeAction:              http.StatusBadGateway,
	ErrorTypeVerificationFailure: http.StatusInternalServerError,
	ErrorTypePolicyForbidden:     http.StatusForbidden,
}

// AppError is the structured error carried across agent boundaries.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusCodeFor(t)}
}

func Newf(t ErrorType, format string, args ...interface{}) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusCodeFor(t), Cause: cause}
}

func Wrapf(cause error, t ErrorType, format string, args ...interface{}) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

func statusCodeFor(t ErrorType) int {
	if code, ok := statusByType[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg += fmt.Sprintf(" (%s)", e.Details)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// Predefined constructors, one per common case seen across adapters.

func NewValidationError(message string) *AppError { return New(ErrorTypeValidation, message) }

func NewDatabaseError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeDatabase, "database operation failed: %s", operation)
}

func NewNotFoundError(resource string) *AppError {
	return Newf(ErrorTypeNotFound, "%s not found", resource)
}

func NewAuthError(message string) *AppError { return New(ErrorTypeAuth, message) }

func NewTimeoutError(operation string) *AppError {
	return Newf(ErrorTypeTimeout, "operation timed out: %s", operation)
}

func NewBackendUnavailableError(backend string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeBackendUnavailable, "%s backend unavailable", backend)
}

func NewBackendTimeoutError(backend string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeBackendTimeout, "%s backend timed out", backend)
}

func NewInvariantViolationError(message string) *AppError {
	return New(ErrorTypeInvariantViolation, message)
}

func NewActionError(action string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeAction, "action failed: %s", action)
}

func NewPolicyForbiddenError(action string) *AppError {
	return Newf(ErrorTypePolicyForbidden, "action %q not in policy allowedActions", action)
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

// GetType returns the AppError's type, or ErrorTypeInternal for any other error.
func GetType(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns the HTTP status associated with err.
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages holds the client-safe text for error types whose internal
// Message may leak operational detail.
var ErrorMessages = struct {
	ResourceNotFound       string
	AuthenticationFailed   string
	OperationTimeout       string
	RateLimitExceeded      string
	ConcurrentModification string
}{
	ResourceNotFound:       "The requested resource was not found",
	AuthenticationFailed:   "Authentication failed",
	OperationTimeout:       "The operation timed out",
	RateLimitExceeded:      "Too many requests, please try again later",
	ConcurrentModification: "The resource was modified concurrently, please retry",
}

// SafeErrorMessage returns a message safe to surface to a caller, hiding
// internal details for everything except validation errors (whose message
// is, by construction, about the caller's own input).
func SafeErrorMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return "An unexpected error occurred"
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		return appErr.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeAuth:
		return ErrorMessages.AuthenticationFailed
	case ErrorTypeTimeout, ErrorTypeBackendTimeout:
		return ErrorMessages.OperationTimeout
	case ErrorTypeRateLimit:
		return ErrorMessages.RateLimitExceeded
	case ErrorTypeConflict:
		return ErrorMessages.ConcurrentModification
	default:
		return "An internal error occurred"
	}
}

// LogFields returns structured logging fields for err, suitable for
// logr.Logger.WithValues or zap.Any.
func LogFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"error": err.Error()}
	appErr, ok := err.(*AppError)
	if !ok {
		return fields
	}
	fields["error_type"] = string(appErr.Type)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain joins non-nil errors into a single error whose message concatenates
// each with " -> ", useful for rollback paths that must report every
// compensate failure rather than only the first.
func Chain(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	msg := nonNil[0].Error()
	for _, e := range nonNil[1:] {
		msg += " -> " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
