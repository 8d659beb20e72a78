package reports

import "fmt"

// Status is the lifecycle state of a report document.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed}

// ParseStatus converts a stored value into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown report status %q", raw)
	}
	return s, nil
}

func (s Status) String() string { return string(s) }

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether a run has finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusInProgress:
		return false
	default:
		panic(fmt.Sprintf("reports: unhandled status %q", string(s)))
	}
}

// CanStartRun reports whether a new generation run may begin from s.
func (s Status) CanStartRun() bool {
	return s.Terminal()
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusFailed
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusPending
	default:
		panic(fmt.Sprintf("reports: unhandled status %q", string(from)))
	}
}
