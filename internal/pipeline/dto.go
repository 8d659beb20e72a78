package pipeline

import (
	"fmt"
	"time"

	"test-report-backend/internal/reports"
)

// CreateReportRequest starts the first generation for an uploaded file.
type CreateReportRequest struct {
	FileID string `json:"file_id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// UpdateReportRequest either renames a report or requests a new version.
type UpdateReportRequest struct {
	Title           string `json:"title"`
	Prompt          string `json:"prompt"`
	FileID          string `json:"file_id"`
	PreviousVersion *int   `json:"previous_version"`
}

// starts reports whether the request needs a generation run.
func (r UpdateReportRequest) starts() bool {
	return r.Prompt != "" || r.FileID != ""
}

// AckResponse acknowledges an accepted run.
type AckResponse struct {
	DocumentID string         `json:"document_id"`
	Status     reports.Status `json:"status"`
	PollRef    string         `json:"poll_ref"`
}

// StatusResponse is the poll payload.
type StatusResponse struct {
	DocumentID  string         `json:"document_id"`
	Title       string         `json:"title"`
	Status      reports.Status `json:"status"`
	Content     string         `json:"content,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentResponse is the outward-facing representation of a report.
type DocumentResponse struct {
	DocumentID  string         `json:"document_id"`
	FileID      string         `json:"file_id"`
	Title       string         `json:"title"`
	Prompt      string         `json:"prompt,omitempty"`
	Status      reports.Status `json:"status"`
	Content     string         `json:"content,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// VersionResponse is the outward-facing representation of a version.
type VersionResponse struct {
	VersionID   string    `json:"version_id"`
	DocumentID  string    `json:"document_id"`
	Version     int       `json:"version"`
	Instruction string    `json:"instruction,omitempty"`
	Content     string    `json:"content"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAckResponse(a Ack) AckResponse {
	return AckResponse{DocumentID: a.DocumentID, Status: a.Status, PollRef: a.PollRef}
}

func toStatusResponse(v StatusView) StatusResponse {
	return StatusResponse{
		DocumentID:  v.DocumentID,
		Title:       v.Title,
		Status:      v.Status,
		Content:     v.Content,
		ErrorDetail: v.ErrorDetail,
		DurationMs:  v.DurationMs,
		UpdatedAt:   v.UpdatedAt,
	}
}

func toDocumentResponse(d reports.Document) DocumentResponse {
	resp := DocumentResponse{
		DocumentID: d.ID,
		FileID:     d.FileID,
		Title:      d.Title,
		Prompt:     d.Prompt,
		Status:     d.Status,
		DurationMs: d.DurationMs,
		StartedAt:  d.StartedAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	switch d.Status {
	case reports.StatusCompleted:
		resp.Content = d.Content
	case reports.StatusFailed:
		resp.Content = d.Content
		resp.ErrorDetail = d.ErrorDetail
	case reports.StatusPending, reports.StatusInProgress:
	default:
		panic(fmt.Sprintf("unhandled report status %q", d.Status))
	}
	return resp
}

func toVersionResponse(v reports.Version) VersionResponse {
	return VersionResponse{
		VersionID:   v.ID,
		DocumentID:  v.DocumentID,
		Version:     v.Number,
		Instruction: v.Instruction,
		Content:     v.Content,
		DurationMs:  v.DurationMs,
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt,
	}
}
