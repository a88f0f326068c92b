// Package errors provides lightweight, string-formatted operational errors
// with a consistent "failed to X" shape, without the full internal/errors
// taxonomy, which is reserved for errors that cross an HTTP or agent
// boundary. internal/retry uses its IsRetryable heuristic for plain errors.
package errors

import "fmt"

// OperationError describes a single failed operation with optional
// component/resource context and an optional wrapped cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Component != "" {
		msg += fmt.Sprintf(", component: %s", e.Component)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause: %s", e.Cause.Error())
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a minimal operation error; cause may be nil.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf prefixes err with a formatted message, or returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

func ParseError(resource, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", resource, format), "", "", cause)
}

// IsRetryable does a coarse substring match against common transient
// failure phrasing. It exists for call sites that receive a plain error
// from a library (not an *internal/errors.AppError) and need a quick
// retry/no-retry signal before deciding whether to hand it to go-retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, substr := range []string{"timeout", "connection refused", "service unavailable", "temporarily unavailable", "EOF"} {
		if contains(msg, substr) {
			return true
		}
	}
	return false
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

// Chain joins multiple non-nil errors into one. Returns nil if all are
// nil, the single error unwrapped if only one is non-nil.
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
	default:
		msg := "multiple errors: "
		for i, e := range nonNil {
			if i > 0 {
				msg += "; "
			}
			msg += e.Error()
		}
		return fmt.Errorf("%s", msg)
	}
}
