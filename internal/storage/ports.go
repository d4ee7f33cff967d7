package storage

import (
	"context"
	"errors"
	"time"

	"finplan/internal/core"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Sync queue operations.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// Sync queue statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// SyncItem is one queued mirror operation for a goal.
type SyncItem struct {
	ID        int64
	GoalID    uuid.UUID
	Operation string
	Status    string
	Attempts  int64
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncStats counts queue rows by status.
type SyncStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// Ports implemented by the SQLite and in-memory backends.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id uuid.UUID) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		DeleteUser(ctx context.Context, id uuid.UUID) error
	}

	LedgerStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, id uuid.UUID) error

		CreateBill(ctx context.Context, b core.Bill) error
		// CreateBills inserts every bill or none.
		CreateBills(ctx context.Context, bills []core.Bill) error
		ListBills(ctx context.Context, userID uuid.UUID) ([]core.Bill, error)
		DeleteBill(ctx context.Context, id uuid.UUID) error

		CreateIncome(ctx context.Context, in core.Income) error
		ListIncomes(ctx context.Context, userID uuid.UUID) ([]core.Income, error)
		DeleteIncome(ctx context.Context, id uuid.UUID) error
	}

	GoalStore interface {
		// SaveGoal inserts or replaces the goal and its classification maps.
		// History is not written; use UpsertSnapshot.
		SaveGoal(ctx context.Context, g *core.FinancialGoal) error
		// GetGoal loads the goal with classifications and history.
		GetGoal(ctx context.Context, id uuid.UUID) (*core.FinancialGoal, error)
		ListGoals(ctx context.Context, userID uuid.UUID) ([]*core.FinancialGoal, error)
		ListAllGoals(ctx context.Context) ([]*core.FinancialGoal, error)
		DeleteGoal(ctx context.Context, id uuid.UUID) error

		UpsertSnapshot(ctx context.Context, s core.MonthlySpending) error
		ListSnapshots(ctx context.Context, goalID uuid.UUID) ([]core.MonthlySpending, error)
	}

	SyncQueue interface {
		// EnqueueSync adds an operation unless the same one is already pending.
		EnqueueSync(ctx context.Context, goalID uuid.UUID, operation string) error
		DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error)
		MarkSyncProcessing(ctx context.Context, id int64) error
		MarkSyncComplete(ctx context.Context, id int64) error
		MarkSyncFailed(ctx context.Context, id int64, errMsg string) error
		IncrementSyncAttempt(ctx context.Context, id int64, errMsg string) error
		// ReleaseSync returns an item to pending without counting an attempt.
		ReleaseSync(ctx context.Context, id int64) error
		// CompleteGoalSyncs marks every pending item for the goal completed.
		CompleteGoalSyncs(ctx context.Context, goalID uuid.UUID, operation string) error
		ResetStaleProcessing(ctx context.Context) error
		CleanupCompletedSyncs(ctx context.Context, olderThan time.Time) error
		SyncQueueStats(ctx context.Context) (SyncStats, error)
		RetryFailedSyncs(ctx context.Context) error
	}

	SecretStore interface {
		GetSecret(ctx context.Context, key string) (string, error)
		PutSecret(ctx context.Context, key, value string) error
	}

	// Store is everything a backend provides.
	Store interface {
		UserStore
		LedgerStore
		GoalStore
		SyncQueue
		SecretStore
		Ping(ctx context.Context) error
		Close() error
	}
)
