package domain

import "errors"

// Error taxonomy surfaced to callers. Services wrap these with context via
// fmt.Errorf("%w: ..."); transports match with errors.Is.
var (
	// ErrValidation marks malformed or missing input; nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSessionClosed marks an operation that is illegal once the owning
	// session left the open state.
	ErrSessionClosed = errors.New("session closed")

	// ErrConflict marks a duplicate creation attempt.
	ErrConflict = errors.New("already exists")

	// ErrAlreadyValidated marks a repeated one-way validation transition.
	ErrAlreadyValidated = errors.New("report already validated")

	// ErrDependency marks a persistence or external-collaborator failure.
	// The caller decides whether to retry; the server never retries on its
	// own to avoid duplicate side effects.
	ErrDependency = errors.New("dependency failure")
)
