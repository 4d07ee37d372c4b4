// Package apperr defines the error kinds the services surface to callers.
// Auth, validation and not-found errors are expected outcomes; dependency
// errors mean a collaborator (database, object storage, mail) failed.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the actor is anonymous on a non-public action.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the actor is authenticated but not permitted.
	ErrForbidden = errors.New("permission denied")
	// ErrValidation means the input was rejected.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the resolved id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDependency means a collaborator was unreachable or failed.
	ErrDependency = errors.New("dependency unavailable")
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error with msg.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// Validationf formats a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for resource.
func NotFound(resource string) error {
	return &Error{Kind: ErrNotFound, Message: resource + " not found"}
}

// Forbidden returns a permission error with msg.
func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// Unauthenticated returns an authentication-required error.
func Unauthenticated() error {
	return &Error{Kind: ErrUnauthenticated, Message: ErrUnauthenticated.Error()}
}

// Dependency wraps a collaborator failure during op.
func Dependency(op string, err error) error {
	return &Error{Kind: ErrDependency, Message: op, Err: err}
}

// Message returns the caller-facing message of err. Dependency causes are
// not exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
