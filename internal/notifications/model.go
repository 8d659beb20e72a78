package notifications

import "time"

// Kind classifies a notification event.
type Kind string

const (
	KindInProgress Kind = "in_progress"
	KindCompleted  Kind = "completed"
	KindFailed     Kind = "failed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInProgress, KindCompleted, KindFailed:
		return true
	default:
		return false
	}
}

// Event is one persisted, user-visible status update. Only IsRead and
// IsDeleted change after creation.
type Event struct {
	ID         string
	UserID     string
	Kind       Kind
	Message    string
	DocumentID string
	Metadata   map[string]any
	IsRead     bool
	IsDeleted  bool
	CreatedAt  time.Time
}
