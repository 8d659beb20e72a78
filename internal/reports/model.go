package reports

import "time"

// Document is one logical report and its current lifecycle state.
type Document struct {
	ID          string
	FileID      string
	GeneratedBy string
	Title       string
	Prompt      string
	Status      Status
	// Content holds the rendered report when Completed and an explanatory
	// message when Failed. It is empty while a run is pending.
	Content     string
	ErrorDetail string
	IsDeleted   bool
	DurationMs  int64
	StartedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Version is an immutable snapshot of one successful run.
type Version struct {
	ID          string
	DocumentID  string
	Number      int
	Instruction string
	Content     string
	DurationMs  int64
	CreatedBy   string
	CreatedAt   time.Time
}

// VersionInput carries the data for a version append.
type VersionInput struct {
	DocumentID  string
	Instruction string
	Content     string
	CreatedBy   string
	Duration    time.Duration
}

// BeginRunInput moves a terminal document back to Pending.
// FileID, when set, relinks the document to a newly uploaded artifact.
type BeginRunInput struct {
	DocumentID string
	FileID     string
	Prompt     string
}

// CompleteRunInput records a successful run.
type CompleteRunInput struct {
	DocumentID  string
	Instruction string
	Content     string
	CreatedBy   string
	Duration    time.Duration
}

// FailRunInput records a failed run.
type FailRunInput struct {
	DocumentID  string
	Content     string
	Detail      string
	Duration    time.Duration
	// StaleBefore, when set, restricts the write to documents last updated before it.
	StaleBefore time.Time
}

// Order selects version listing direction.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// ParseOrder maps "asc"/"desc" onto an Order; anything else is ascending.
func ParseOrder(raw string) Order {
	if raw == "desc" {
		return OrderDesc
	}
	return OrderAsc
}
