// Package adapters bridges the SQLite repository to the contracts of other
// packages.
package adapters

import (
	"context"

	"ledgerlite/internal/session"
	"ledgerlite/internal/storage"
)

// SQLiteSessionAdapter exposes the session_values table as a session.Backend.
type SQLiteSessionAdapter struct {
	storage *storage.SQLiteRepository
}

var _ session.Backend = (*SQLiteSessionAdapter)(nil)

func NewSQLiteSessionAdapter(storage *storage.SQLiteRepository) *SQLiteSessionAdapter {
	return &SQLiteSessionAdapter{storage: storage}
}

func (a *SQLiteSessionAdapter) Load(ctx context.Context, browserID, key string) (string, bool, error) {
	return a.storage.LoadSessionValue(ctx, browserID, key)
}

func (a *SQLiteSessionAdapter) Save(ctx context.Context, browserID, key, value string) error {
	return a.storage.SaveSessionValue(ctx, browserID, key, value)
}

func (a *SQLiteSessionAdapter) Delete(ctx context.Context, browserID, key string) error {
	return a.storage.DeleteSessionValue(ctx, browserID, key)
}

func (a *SQLiteSessionAdapter) Clear(ctx context.Context, browserID string) error {
	return a.storage.ClearSessionValues(ctx, browserID)
}
