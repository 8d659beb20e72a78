package reports

import "errors"

var (
	ErrNotFound        = errors.New("report not found")
	ErrVersionNotFound = errors.New("report version not found")
	// ErrRunInProgress is returned when a document already has a pending or active run.
	ErrRunInProgress = errors.New("a generation run is already in progress for this report")
	// ErrInvalidTransition is returned when the stored status does not allow the requested change.
	ErrInvalidTransition = errors.New("invalid report status transition")
)
