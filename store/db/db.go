// Package db selects database drivers for the configured profile.
package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/store"
	"github.com/aico-ai/aico/store/db/postgres"
	"github.com/aico-ai/aico/store/db/sqlite"
)

// WorkingDriver is a working-memory store that owns its schema and handle.
type WorkingDriver interface {
	store.WorkingStore
	Migrate(ctx context.Context) error
	Close() error
}

// SemanticDriver is a semantic memory that owns its handle.
type SemanticDriver interface {
	store.SemanticMemory
	Close() error
}

// NewWorkingDriver opens the working-memory store named by the profile.
func NewWorkingDriver(p *profile.Profile) (WorkingDriver, error) {
	switch p.Driver {
	case "sqlite":
		return sqlite.NewDB(p)
	case "postgres":
		return postgres.NewWorkingDB(p)
	default:
		return nil, errors.Errorf("unsupported working-store driver: %s", p.Driver)
	}
}

// NewSemanticMemory opens the semantic memory when the profile enables it.
// A nil return with nil error means semantic memory is simply off.
func NewSemanticMemory(p *profile.Profile) (SemanticDriver, error) {
	if p.MemoryDriver == "" {
		return nil, nil
	}
	return postgres.NewDB(p)
}
