package reports

import (
	"context"
	"time"
)

// VersionRepo appends and reads immutable versions.
type VersionRepo interface {
	// AppendVersion assigns max(existing)+1, starting at 1.
	AppendVersion(ctx context.Context, in VersionInput) (Version, error)
	ListVersions(ctx context.Context, documentID string, order Order) ([]Version, error)
	LatestVersion(ctx context.Context, documentID string) (Version, error)
	GetVersion(ctx context.Context, documentID string, number int) (Version, error)
}

// Repo persists report documents and their versions.
type Repo interface {
	VersionRepo

	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	UpdateTitle(ctx context.Context, documentID, title string) (Document, error)
	// BeginRun moves a Completed or Failed document to Pending.
	// It returns ErrRunInProgress when the document is Pending or InProgress.
	BeginRun(ctx context.Context, in BeginRunInput) (Document, error)
	// MarkInProgress moves a Pending document to InProgress and stamps started_at.
	MarkInProgress(ctx context.Context, documentID string) (Document, error)
	// CompleteRun appends a version and marks the document Completed atomically.
	CompleteRun(ctx context.Context, in CompleteRunInput) (Version, error)
	FailRun(ctx context.Context, in FailRunInput) error
	// ListStale returns Pending or InProgress documents not updated since before.
	ListStale(ctx context.Context, before time.Time) ([]Document, error)
	// SoftDelete hides a document; ErrRunInProgress while a run is active.
	SoftDelete(ctx context.Context, documentID string) error
}
