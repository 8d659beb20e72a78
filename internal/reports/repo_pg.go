package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"test-report-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, file_id, generated_by, title, prompt, status, content, error_detail,
       is_deleted, duration_ms, started_at, created_at, updated_at`

const versionColumns = `id, report_id, version, prompt, content, duration_ms, created_by, created_at`

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO reports (id, file_id, generated_by, title, prompt, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, doc.FileID, doc.GeneratedBy, doc.Title, doc.Prompt, string(doc.Status), createdAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, documentID string) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM reports WHERE id = $1 AND NOT is_deleted`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM reports
WHERE generated_by = $1 AND NOT is_deleted
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateTitle(ctx context.Context, documentID, title string) (Document, error) {
	const query = `UPDATE reports SET title = $2, updated_at = now()
WHERE id = $1 AND NOT is_deleted
RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID, title))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (r *PGRepo) BeginRun(ctx context.Context, in BeginRunInput) (Document, error) {
	const query = `UPDATE reports
SET status = $2, content = NULL, error_detail = NULL, started_at = NULL, prompt = $3,
    file_id = COALESCE(NULLIF($4, ''), file_id), updated_at = now()
WHERE id = $1 AND NOT is_deleted AND status IN ($5, $6)
RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query,
		in.DocumentID, string(StatusPending), in.Prompt, in.FileID,
		string(StatusCompleted), string(StatusFailed),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, r.missOr(ctx, in.DocumentID, ErrRunInProgress)
	}
	return doc, err
}

func (r *PGRepo) MarkInProgress(ctx context.Context, documentID string) (Document, error) {
	const query = `UPDATE reports
SET status = $2, started_at = now(), updated_at = now()
WHERE id = $1 AND NOT is_deleted AND status = $3
RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query,
		documentID, string(StatusInProgress), string(StatusPending),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, r.missOr(ctx, documentID, ErrInvalidTransition)
	}
	return doc, err
}

func (r *PGRepo) CompleteRun(ctx context.Context, in CompleteRunInput) (Version, error) {
	const update = `UPDATE reports
SET status = $2, content = $3, error_detail = NULL, duration_ms = $4, updated_at = now()
WHERE id = $1 AND NOT is_deleted AND status = $5`

	var version Version
	err := db.ExecTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, update,
			in.DocumentID, string(StatusCompleted), in.Content, in.Duration.Milliseconds(), string(StatusInProgress),
		)
		if err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrInvalidTransition
		}
		version, err = appendVersion(ctx, tx, VersionInput{
			DocumentID:  in.DocumentID,
			Instruction: in.Instruction,
			Content:     in.Content,
			CreatedBy:   in.CreatedBy,
			Duration:    in.Duration,
		})
		return err
	})
	if err != nil {
		return Version{}, err
	}
	return version, nil
}

func (r *PGRepo) FailRun(ctx context.Context, in FailRunInput) error {
	const query = `UPDATE reports
SET status = $2, content = $3, error_detail = $4, duration_ms = $5, updated_at = now()
WHERE id = $1 AND NOT is_deleted AND status IN ($6, $7)
  AND ($8::timestamptz IS NULL OR updated_at < $8)`
	staleBefore := sql.NullTime{Time: in.StaleBefore, Valid: !in.StaleBefore.IsZero()}
	res, err := r.DB.ExecContext(ctx, query,
		in.DocumentID, string(StatusFailed), in.Content, in.Detail, in.Duration.Milliseconds(),
		string(StatusPending), string(StatusInProgress), staleBefore,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOr(ctx, in.DocumentID, ErrInvalidTransition)
	}
	return nil
}

func (r *PGRepo) ListStale(ctx context.Context, before time.Time) ([]Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM reports
WHERE NOT is_deleted AND status IN ($1, $2) AND updated_at < $3
ORDER BY updated_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, string(StatusPending), string(StatusInProgress), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) SoftDelete(ctx context.Context, documentID string) error {
	const query = `UPDATE reports SET is_deleted = TRUE, updated_at = now()
WHERE id = $1 AND NOT is_deleted AND status IN ($2, $3)`
	res, err := r.DB.ExecContext(ctx, query, documentID, string(StatusCompleted), string(StatusFailed))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOr(ctx, documentID, ErrRunInProgress)
	}
	return nil
}

func (r *PGRepo) AppendVersion(ctx context.Context, in VersionInput) (Version, error) {
	return appendVersion(ctx, r.DB, in)
}

// appendVersion computes the next number inside the insert so the unique
// (report_id, version) constraint is the only arbiter.
func appendVersion(ctx context.Context, q queryer, in VersionInput) (Version, error) {
	const query = `
INSERT INTO report_versions (id, report_id, version, prompt, content, duration_ms, created_by, created_at)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7
FROM report_versions WHERE report_id = $2
RETURNING ` + versionColumns
	v, err := scanVersion(q.QueryRowContext(ctx, query,
		uuid.NewString(), in.DocumentID, in.Instruction, in.Content,
		in.Duration.Milliseconds(), in.CreatedBy, time.Now().UTC(),
	))
	if err != nil {
		return Version{}, fmt.Errorf("append version: %w", err)
	}
	return v, nil
}

func (r *PGRepo) ListVersions(ctx context.Context, documentID string, order Order) ([]Version, error) {
	query := `SELECT ` + versionColumns + ` FROM report_versions WHERE report_id = $1 ORDER BY version ASC`
	if order == OrderDesc {
		query = `SELECT ` + versionColumns + ` FROM report_versions WHERE report_id = $1 ORDER BY version DESC`
	}
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepo) LatestVersion(ctx context.Context, documentID string) (Version, error) {
	const query = `SELECT ` + versionColumns + ` FROM report_versions
WHERE report_id = $1 ORDER BY version DESC LIMIT 1`
	v, err := scanVersion(r.DB.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrVersionNotFound
	}
	return v, err
}

func (r *PGRepo) GetVersion(ctx context.Context, documentID string, number int) (Version, error) {
	const query = `SELECT ` + versionColumns + ` FROM report_versions
WHERE report_id = $1 AND version = $2`
	v, err := scanVersion(r.DB.QueryRowContext(ctx, query, documentID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrVersionNotFound
	}
	return v, err
}

// missOr distinguishes a missing document from a failed status guard.
func (r *PGRepo) missOr(ctx context.Context, documentID string, guardErr error) error {
	if _, err := r.Get(ctx, documentID); err != nil {
		return err
	}
	return guardErr
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc         Document
		status      string
		content     sql.NullString
		errorDetail sql.NullString
		startedAt   sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.FileID, &doc.GeneratedBy, &doc.Title, &doc.Prompt, &status,
		&content, &errorDetail, &doc.IsDeleted, &doc.DurationMs, &startedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	if doc.Status, err = ParseStatus(status); err != nil {
		return Document{}, err
	}
	doc.Content = content.String
	doc.ErrorDetail = errorDetail.String
	if startedAt.Valid {
		t := startedAt.Time
		doc.StartedAt = &t
	}
	return doc, nil
}

func scanVersion(row rowScanner) (Version, error) {
	var v Version
	err := row.Scan(&v.ID, &v.DocumentID, &v.Number, &v.Instruction, &v.Content, &v.DurationMs, &v.CreatedBy, &v.CreatedAt)
	return v, err
}

var _ Repo = (*PGRepo)(nil)
