package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/store"
)

// WorkingDB is a PostgreSQL-backed working-memory store, used when the
// resolver owns message persistence instead of reading a shared service.
type WorkingDB struct {
	db *sql.DB
}

// NewWorkingDB opens the working-memory database at the profile DSN.
func NewWorkingDB(profile *profile.Profile) (*WorkingDB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}
	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	return &WorkingDB{db: pgDB}, nil
}

// Migrate creates the message table when missing.
func (d *WorkingDB) Migrate(ctx context.Context) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS message (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL DEFAULT '',
			message_type TEXT NOT NULL DEFAULT 'other',
			content TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_message_user_ts ON message (user_id, created_ts);
	`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to migrate message table")
	}
	return nil
}

// Recent returns the user's messages within the window, oldest first.
func (d *WorkingDB) Recent(ctx context.Context, userID string, window time.Duration) ([]store.MessageRecord, error) {
	since := time.Now().Add(-window).UnixMilli()
	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, thread_id, message_type, content, created_ts
		FROM message
		WHERE user_id = $1 AND created_ts >= $2
		ORDER BY created_ts ASC
	`, userID, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query recent messages")
	}
	defer rows.Close()

	list := []store.MessageRecord{}
	for rows.Next() {
		var record store.MessageRecord
		var messageType string
		var createdTs int64
		if err := rows.Scan(&record.UserID, &record.ThreadID, &messageType, &record.Content, &createdTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan message row")
		}
		record.Type = store.MessageType(messageType)
		record.Timestamp = time.UnixMilli(createdTs).UTC()
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate message rows")
	}
	return list, nil
}

// Append stores a message record.
func (d *WorkingDB) Append(ctx context.Context, record *store.MessageRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO message (user_id, thread_id, message_type, content, created_ts)
		VALUES ($1, $2, $3, $4, $5)
	`, record.UserID, record.ThreadID, string(record.Type), record.Content, ts.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "failed to insert message")
	}
	return nil
}

// Close closes the underlying database handle.
func (d *WorkingDB) Close() error {
	return d.db.Close()
}
