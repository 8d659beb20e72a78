package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, e Event) error {
	const query = `
INSERT INTO notifications (id, user_id, kind, message, document_id, metadata, is_read, is_deleted, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, false, false, $7)`
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query, e.ID, e.UserID, string(e.Kind), e.Message, e.DocumentID, payload, e.CreatedAt)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]Event, error) {
	query := `
SELECT id, user_id, kind, message, COALESCE(document_id, ''), metadata, is_read, created_at
FROM notifications
WHERE user_id = $1 AND NOT is_deleted`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			kind     string
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Message, &e.DocumentID, &metadata, &e.IsRead, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepo) MarkRead(ctx context.Context, userID, eventID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	return r.execOne(ctx, query, eventID, userID)
}

func (r *PGRepo) SoftDelete(ctx context.Context, userID, eventID string) error {
	const query = `UPDATE notifications SET is_deleted = TRUE WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	return r.execOne(ctx, query, eventID, userID)
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
