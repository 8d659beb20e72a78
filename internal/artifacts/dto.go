package artifacts

import "time"

// ArtifactResponse is the outward-facing representation of an artifact.
type ArtifactResponse struct {
	FileID     string    `json:"file_id"`
	ProjectID  string    `json:"project_id,omitempty"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toResponse(a Artifact) ArtifactResponse {
	return ArtifactResponse{
		FileID:     a.ID,
		ProjectID:  a.ProjectID,
		FileName:   a.FileName,
		FileType:   a.FileType,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		SHA256:     a.SHA256,
		UploadedAt: a.UploadedAt,
	}
}
