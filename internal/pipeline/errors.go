package pipeline

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrPreviousVersionRequired rejects a versioning request without the superseded version.
	ErrPreviousVersionRequired = errors.New("previous_version is required to regenerate a report")
	ErrPreviousVersionNotFound = errors.New("previous version not found")
	ErrDuplicateContent        = errors.New("duplicate content: use instruction text for adjustments")
	ErrQueueFull               = errors.New("generation queue is full")
	ErrSupervisorClosed        = errors.New("generation supervisor is shutting down")
)

// RejectedError is a run the generation service refused through the error marker.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return "generation rejected the input"
	}
	return "generation rejected the input: " + e.Detail
}
