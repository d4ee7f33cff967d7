package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

func (r *SQLiteRepository) EnqueueSync(ctx context.Context, goalID uuid.UUID, operation string) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (goal_id, operation, status, attempts, created_at, updated_at)
		 SELECT ?, ?, 'pending', 0, ?, ?
		 WHERE NOT EXISTS (
		   SELECT 1 FROM sync_queue WHERE goal_id = ? AND operation = ? AND status = 'pending'
		 )`,
		goalID.String(), operation, now, now, goalID.String(), operation)
	if err != nil {
		return fmt.Errorf("enqueue sync: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.DebugContext(ctx, "Sync enqueued", "goal_id", goalID, "operation", operation)
	}
	return nil
}

func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, operation, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		 FROM sync_queue WHERE status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue sync batch: %w", err)
	}
	defer rows.Close()

	var items []SyncItem
	for rows.Next() {
		var (
			it               SyncItem
			goalID           string
			created, updated string
		)
		if err := rows.Scan(&it.ID, &goalID, &it.Operation, &it.Status, &it.Attempts, &it.LastError, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		if it.GoalID, err = uuid.Parse(goalID); err != nil {
			return nil, fmt.Errorf("parse goal id: %w", err)
		}
		if it.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if it.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string, errMsg sql.NullString, addAttempt int) error {
	return r.execOne(ctx,
		`UPDATE sync_queue SET status = ?, attempts = attempts + ?, last_error = COALESCE(?, last_error), updated_at = ?
		 WHERE id = ?`,
		status, addAttempt, errMsg, formatTime(time.Now()), id)
}

func (r *SQLiteRepository) MarkSyncProcessing(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, StatusProcessing, sql.NullString{}, 0); err != nil {
		return fmt.Errorf("mark sync processing: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncComplete(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, StatusCompleted, sql.NullString{}, 0); err != nil {
		return fmt.Errorf("mark sync complete: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, errMsg string) error {
	if err := r.setSyncStatus(ctx, id, StatusFailed, sql.NullString{String: errMsg, Valid: true}, 1); err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	slog.WarnContext(ctx, "Sync item marked failed", "id", id)
	return nil
}

func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, errMsg string) error {
	if err := r.setSyncStatus(ctx, id, StatusPending, sql.NullString{String: errMsg, Valid: true}, 1); err != nil {
		return fmt.Errorf("increment sync attempt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReleaseSync(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, StatusPending, sql.NullString{}, 0); err != nil {
		return fmt.Errorf("release sync: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CompleteGoalSyncs(ctx context.Context, goalID uuid.UUID, operation string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = 'completed', updated_at = ?
		 WHERE goal_id = ? AND operation = ? AND status = 'pending'`,
		formatTime(time.Now()), goalID.String(), operation)
	if err != nil {
		return fmt.Errorf("complete goal syncs: %w", err)
	}
	return nil
}

// ResetStaleProcessing returns items left processing by a crashed worker to
// the pending state.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = 'pending', updated_at = ? WHERE status = 'processing'`,
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Reset stale sync items", "count", n)
	}
	return nil
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, olderThan time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE status = 'completed' AND updated_at < ?`, formatTime(olderThan))
	if err != nil {
		return fmt.Errorf("cleanup completed syncs: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Cleaned up completed sync items", "count", n)
	}
	return nil
}

func (r *SQLiteRepository) SyncQueueStats(ctx context.Context) (SyncStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return SyncStats{}, fmt.Errorf("sync queue stats: %w", err)
	}
	defer rows.Close()

	var st SyncStats
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return SyncStats{}, fmt.Errorf("scan sync stats: %w", err)
		}
		switch status {
		case StatusPending:
			st.Pending = n
		case StatusProcessing:
			st.Processing = n
		case StatusCompleted:
			st.Completed = n
		case StatusFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}

func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = 'pending', attempts = 0, updated_at = ? WHERE status = 'failed'`,
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("retry failed syncs: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Failed sync items reset for retry", "count", n)
	return nil
}
