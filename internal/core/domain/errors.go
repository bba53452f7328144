package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a job state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrJobActive indicates a non-terminal job already exists for the document
	ErrJobActive = errors.New("job already active for document")

	// ErrRetryBudgetExceeded indicates the job has used all of its retries
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")

	// ErrConfiguration indicates an invalid component configuration
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnauthorized indicates authentication failed or is missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrServiceUnavailable indicates an external collaborator could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DuplicateError indicates an uploaded file's content hash matches an
// existing document. It carries the existing document's ID so callers
// can point the client at it.
type DuplicateError struct {
	ExistingID int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content: document %d already exists", e.ExistingID)
}

// IsDuplicate reports whether err is a DuplicateError and returns the
// existing document ID if so.
func IsDuplicate(err error) (int64, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.ExistingID, true
	}
	return 0, false
}

// StageError wraps a failure from a pipeline stage with the stage name,
// so the job record and logs can show where processing stopped.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
