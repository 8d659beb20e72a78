package artifacts

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const artifactColumns = `id, project_id, user_id, file_name, file_type, mime_type, size_bytes, storage_key, sha256, is_deleted, uploaded_at`

func (r *PGRepo) Create(ctx context.Context, a Artifact) error {
	const query = `
INSERT INTO uploaded_files (` + artifactColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID, a.ProjectID, a.UserID, a.FileName, a.FileType, a.MimeType, a.SizeBytes, a.StorageKey, a.SHA256, a.UploadedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, artifactID string) (Artifact, error) {
	const query = `SELECT ` + artifactColumns + ` FROM uploaded_files WHERE id = $1 AND NOT is_deleted`
	a, err := scanArtifact(r.DB.QueryRowContext(ctx, query, artifactID))
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) ListByProject(ctx context.Context, projectID string) ([]Artifact, error) {
	const query = `SELECT ` + artifactColumns + ` FROM uploaded_files
WHERE project_id = $1 AND NOT is_deleted
ORDER BY uploaded_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	err := row.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.FileName, &a.FileType, &a.MimeType,
		&a.SizeBytes, &a.StorageKey, &a.SHA256, &a.IsDeleted, &a.UploadedAt)
	return a, err
}

var _ Repo = (*PGRepo)(nil)
