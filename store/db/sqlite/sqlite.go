// Package sqlite implements the working-memory store over SQLite for
// stand-alone and development deployments. Production deployments point the
// resolver at the shared working-memory service instead.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/store"
)

// DB is a SQLite-backed working-memory store.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the working-memory database at the profile DSN.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect with sane settings for a single-writer local store:
	// WAL journal mode plus a generous busy timeout. With the
	// `modernc.org/sqlite` driver each pragma must be prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: a single connection is optimal with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

// Migrate creates the messages table when missing.
func (d *DB) Migrate(ctx context.Context) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
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
func (d *DB) Recent(ctx context.Context, userID string, window time.Duration) ([]store.MessageRecord, error) {
	since := time.Now().Add(-window).UnixMilli()
	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, thread_id, message_type, content, created_ts
		FROM message
		WHERE user_id = ? AND created_ts >= ?
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
func (d *DB) Append(ctx context.Context, record *store.MessageRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO message (user_id, thread_id, message_type, content, created_ts)
		VALUES (?, ?, ?, ?, ?)
	`, record.UserID, record.ThreadID, string(record.Type), record.Content, ts.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "failed to insert message")
	}
	return nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
