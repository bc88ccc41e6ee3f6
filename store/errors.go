package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by point lookups when no matching row exists.
var ErrNotFound = errors.New("not found")

// ErrJobTerminal is returned when a terminal transition is attempted on a
// sync job that has already completed or failed. Terminal jobs are immutable.
var ErrJobTerminal = errors.New("sync job already in terminal state")

// StoreError represents errors from store operations.
// It provides structured error information including the failing operation
// and the affected identifiers.
type StoreError struct {
	Op         string // e.g., "UpsertTasks", "GetSyncJob"
	UserID     string // Optional: owning user
	ExternalID string // Optional: affected external task id
	JobID      string // Optional: affected sync job id
	Err        error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	switch {
	case e.UserID != "" && e.ExternalID != "":
		return fmt.Sprintf("store %s failed for task %s (user %s): %v", e.Op, e.ExternalID, e.UserID, e.Err)
	case e.JobID != "":
		return fmt.Sprintf("store %s failed for job %s: %v", e.Op, e.JobID, e.Err)
	case e.UserID != "":
		return fmt.Sprintf("store %s failed for user %s: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error wrapping
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a missing-row error from any store operation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
