package artifacts

import "time"

// Artifact is an uploaded test-result file. The bytes live in the object
// store under StorageKey; this record is never physically deleted.
type Artifact struct {
	ID         string
	ProjectID  string
	UserID     string
	FileName   string
	FileType   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	SHA256     string
	IsDeleted  bool
	UploadedAt time.Time
}
