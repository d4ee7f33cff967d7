package storage

import (
	"context"
	"fmt"
	"time"
)

// GetSecret returns the stored (already encrypted) value for key.
func (r *SQLiteRepository) GetSecret(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("get secret %q: %w", key, notFound(err))
	}
	return v, nil
}

func (r *SQLiteRepository) PutSecret(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("put secret %q: %w", key, err)
	}
	return nil
}
