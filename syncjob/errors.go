package syncjob

import (
	"context"
	"errors"
	"fmt"

	"tasksync/integration"
	"tasksync/store"
)

// Kind classifies sync errors for callers that map them to responses
type Kind string

const (
	KindNotFound     Kind = "not_found"    // no matching connection or task
	KindUnauthorized Kind = "unauthorized" // missing or invalid credential
	KindValidation   Kind = "validation"   // missing required input
	KindUpstream     Kind = "upstream"     // integration platform call failed
	KindPersistence  Kind = "persistence"  // store write failed
	KindTimeout      Kind = "timeout"      // page cap or job deadline exceeded
	KindConflict     Kind = "conflict"     // a sync is already running
	KindInternal     Kind = "internal"     // unclassified fallback
)

// JobError is a classified error from the sync job lifecycle
type JobError struct {
	Kind    Kind
	Op      string // e.g., "StartSync", "drain"
	Message string
	Err     error
}

// Error implements the error interface
func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf classifies an arbitrary error from the sync path
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}

	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsNotFound() {
			return KindNotFound
		}
		if apiErr.IsUnauthorized() {
			return KindUnauthorized
		}
		return KindUpstream
	}

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		if store.IsNotFound(err) {
			return KindNotFound
		}
		return KindPersistence
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindInternal
}
