package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LoadSessionValue reads one session key for a browser.
func (r *SQLiteRepository) LoadSessionValue(ctx context.Context, browserID, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE browser_id = ? AND key = ?`, browserID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load session value: %w", err)
	}
	return v, true, nil
}

func (r *SQLiteRepository) SaveSessionValue(ctx context.Context, browserID, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_values (browser_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (browser_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		browserID, key, value, r.timestamp())
	if err != nil {
		return fmt.Errorf("save session value: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSessionValue(ctx context.Context, browserID, key string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE browser_id = ? AND key = ?`, browserID, key); err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearSessionValues(ctx context.Context, browserID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_values WHERE browser_id = ?`, browserID); err != nil {
		return fmt.Errorf("clear session values: %w", err)
	}
	return nil
}
