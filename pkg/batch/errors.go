package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a batch number < 1 or an empty identity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBatchFailed is returned when every attempt of a batch failed.
	ErrBatchFailed = errors.New("batch failed")
)

// ServiceError is a failure the service reported in its payload
// (success:false), as opposed to a call that could not complete.
type ServiceError struct {
	Message string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return "service reported failure"
	}
	return fmt.Sprintf("service reported failure: %s", e.Message)
}

// FailedError carries the details of an exhausted batch.
// It matches ErrBatchFailed with errors.Is.
type FailedError struct {
	BatchNumber int
	Attempts    int
	Err         error
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempts: %v", e.BatchNumber, e.Attempts, e.Err)
}

// Is reports ErrBatchFailed as a match.
func (e *FailedError) Is(target error) bool {
	return target == ErrBatchFailed
}

// Unwrap returns the last attempt's error.
func (e *FailedError) Unwrap() error {
	return e.Err
}
