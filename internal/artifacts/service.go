package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"test-report-backend/internal/shared/storage/object"
	"test-report-backend/internal/shared/telemetry"
)

// DefaultMaxBytes bounds how much of an artifact is held in memory.
const DefaultMaxBytes = 10 << 20

// Service coordinates artifact storage and metadata persistence.
type Service struct {
	Store    object.ObjectStore
	Repo     Repo
	MaxBytes int64
	now      func() time.Time
}

// UploadInput describes a new artifact.
type UploadInput struct {
	UserID    string
	ProjectID string
	FileName  string
	Body      io.Reader
}

// NewService constructs a Service.
func NewService(store object.ObjectStore, repo Repo) *Service {
	return &Service{Store: store, Repo: repo, MaxBytes: DefaultMaxBytes, now: time.Now}
}

// Upload validates the extension, stores the bytes and records metadata.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Artifact, error) {
	in.FileName = strings.TrimSpace(in.FileName)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.UserID == "" || in.FileName == "" || in.Body == nil {
		return Artifact{}, fmt.Errorf("%w: user, file name and body are required", ErrInvalidInput)
	}
	if !IsValidFormat(in.FileName) {
		return Artifact{}, ErrUnsupportedFormat
	}

	var body io.Reader = in.Body
	if s.maxBytes() > 0 {
		// Oversized bodies must be rejected before anything reaches the store.
		data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes()+1))
		if err != nil {
			return Artifact{}, fmt.Errorf("read upload: %w", err)
		}
		if int64(len(data)) > s.maxBytes() {
			return Artifact{}, ErrTooLarge
		}
		body = bytes.NewReader(data)
	}
	obj, err := s.Store.Save(ctx, in.UserID, in.FileName, body)
	if err != nil {
		return Artifact{}, fmt.Errorf("save artifact: %w", err)
	}

	artifact := Artifact{
		ID:         uuid.NewString(),
		ProjectID:  in.ProjectID,
		UserID:     in.UserID,
		FileName:   in.FileName,
		FileType:   FileType(in.FileName),
		MimeType:   obj.MimeType,
		SizeBytes:  obj.Size,
		StorageKey: obj.Key,
		SHA256:     obj.SHA256,
		UploadedAt: s.clock().UTC(),
	}
	if err := s.Repo.Create(ctx, artifact); err != nil {
		return Artifact{}, fmt.Errorf("persist artifact: %w", err)
	}

	telemetry.Info("artifact.uploaded", map[string]any{
		"artifact_id": artifact.ID,
		"project_id":  artifact.ProjectID,
		"file_type":   artifact.FileType,
		"size_bytes":  artifact.SizeBytes,
		"request_id":  telemetry.RequestID(ctx),
	})
	return artifact, nil
}

// Get returns artifact metadata.
func (s *Service) Get(ctx context.Context, artifactID string) (Artifact, error) {
	if strings.TrimSpace(artifactID) == "" {
		return Artifact{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, artifactID)
}

// ListByProject returns the project's artifacts, newest first.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]Artifact, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	return s.Repo.ListByProject(ctx, projectID)
}

// Read returns an artifact owned by userID together with its stored bytes.
// Artifacts of other users are reported as ErrNotFound.
func (s *Service) Read(ctx context.Context, artifactID, userID string) (Artifact, []byte, error) {
	artifact, err := s.Get(ctx, artifactID)
	if err != nil {
		return Artifact{}, nil, err
	}
	if artifact.UserID != "" && artifact.UserID != userID {
		return Artifact{}, nil, ErrNotFound
	}
	data, err := s.ReadArtifact(ctx, artifact)
	if err != nil {
		return Artifact{}, nil, err
	}
	return artifact, data, nil
}

// ReadArtifact returns the stored bytes for already loaded metadata.
func (s *Service) ReadArtifact(ctx context.Context, artifact Artifact) ([]byte, error) {
	data, err := object.ReadAll(ctx, s.Store, artifact.StorageKey, s.maxBytes())
	if errors.Is(err, object.ErrTooLarge) {
		return nil, ErrTooLarge
	}
	return data, err
}

// SameContent reports whether two artifacts hold byte-identical content.
// Differing recorded sizes or digests short-circuit the byte comparison.
func (s *Service) SameContent(ctx context.Context, a, b Artifact) (bool, error) {
	if a.ID == b.ID {
		return true, nil
	}
	if a.SizeBytes != b.SizeBytes {
		return false, nil
	}
	if a.SHA256 != "" && b.SHA256 != "" && a.SHA256 != b.SHA256 {
		return false, nil
	}
	left, err := s.ReadArtifact(ctx, a)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", a.ID, err)
	}
	right, err := s.ReadArtifact(ctx, b)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", b.ID, err)
	}
	return bytes.Equal(left, right), nil
}

func (s *Service) maxBytes() int64 {
	return s.MaxBytes
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
