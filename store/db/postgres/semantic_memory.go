// Package postgres implements the semantic-memory adapter over PostgreSQL
// with the pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/store"
)

// DB is a pgvector-backed semantic memory.
type DB struct {
	db *sql.DB
}

// NewDB opens the semantic-memory database at the profile memory DSN.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.MemoryDSN == "" {
		return nil, errors.New("memory dsn required")
	}
	pgDB, err := sql.Open("postgres", profile.MemoryDSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.MemoryDSN)
	}
	return &DB{db: pgDB}, nil
}

// QueryNearby returns up to k segments for the user ordered by cosine
// distance to the query embedding. An empty slice is a valid result.
func (d *DB) QueryNearby(ctx context.Context, userID string, embedding []float32, k int) ([]store.Segment, error) {
	if len(embedding) == 0 || k <= 0 {
		return []store.Segment{}, nil
	}

	vector := pgvector.NewVector(embedding)
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, thread_id, content, created_ts,
			1 - (embedding <=> $1) AS similarity
		FROM conversation_segment
		WHERE user_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vector, userID, k)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query nearby segments")
	}
	defer rows.Close()

	list := []store.Segment{}
	for rows.Next() {
		var segment store.Segment
		var createdTs int64
		if err := rows.Scan(&segment.ID, &segment.UserID, &segment.ThreadID, &segment.Content, &createdTs, &segment.Similarity); err != nil {
			return nil, errors.Wrap(err, "failed to scan segment row")
		}
		segment.CreatedAt = time.UnixMilli(createdTs).UTC()
		list = append(list, segment)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate segment rows")
	}
	return list, nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
