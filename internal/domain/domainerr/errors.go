package domainerr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers map these to HTTP status codes; services
// and repositories wrap them with context via the constructors below.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state transition")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

// DomainError carries a user-safe message alongside the error kind.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing entity by type and identifier.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewValidationError reports invalid input caught before any side effect.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: msg}
}

// NewConflictError reports a write that lost to a concurrent update or a
// uniqueness constraint.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: msg}
}

// NewInvalidStateError reports an illegal aggregate state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewUnavailableError reports an operation whose backing provider is not
// configured or not reachable.
func NewUnavailableError(msg string) *DomainError {
	return &DomainError{Err: ErrUnavailable, Message: msg}
}

// IsKind reports whether err wraps the given sentinel kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
