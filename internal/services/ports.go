package services

import (
	"context"

	"finplan/internal/storage"

	"github.com/google/uuid"
)

// SyncPublisher announces that a goal changed and should be mirrored. The
// AMQP client implements it.
type SyncPublisher interface {
	PublishGoalSync(ctx context.Context, goalID uuid.UUID, operation string) error
}

// GoalRepository is the storage the goal service needs.
type GoalRepository interface {
	storage.LedgerStore
	storage.GoalStore
	storage.SyncQueue
}

// Invalidator drops cached reads for a goal after a write.
type Invalidator interface {
	InvalidateGoal(goalID uuid.UUID)
}
