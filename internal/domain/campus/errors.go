package campus

import (
	"errors"
	"fmt"
)

// ErrAPIFailure is the sentinel for upstream domain errors.
// Use errors.Is(err, ErrAPIFailure) to match any *APIError.
var ErrAPIFailure = errors.New("campus api request failed")

// APIError is returned when the upstream webservice answers with a non-zero
// status in either envelope shape. Status and Data carry the upstream values
// unchanged.
type APIError struct {
	// Status is the upstream status code (never zero).
	Status int
	// Data is the upstream error payload, usually a short message string.
	Data string
}

// Error returns a human-readable description of the upstream failure.
func (e *APIError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("campus api [%d]: %s", e.Status, e.Data)
	}
	return fmt.Sprintf("campus api [%d]", e.Status)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrAPIFailure).
func (e *APIError) Is(target error) bool {
	return target == ErrAPIFailure
}
