package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finplan/internal/amqp"
	"finplan/internal/cloud"
	"finplan/internal/services"

	"github.com/google/uuid"
)

// GoalSyncer mirrors a single goal. Implemented by services.SyncProcessor.
type GoalSyncer interface {
	SyncGoal(ctx context.Context, goalID uuid.UUID) error
}

// SyncWorker turns goal sync messages into mirror syncs.
type SyncWorker struct {
	syncer GoalSyncer
}

func NewSyncWorker(syncer GoalSyncer) *SyncWorker {
	return &SyncWorker{syncer: syncer}
}

// HandleSyncMessage syncs the goal named by msg. A returned error makes the
// consumer requeue the message.
//
// An unavailable account or a superseded sync is not an error: the queue item
// stays pending for the poll loop, or a newer sync already covers it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.GoalSyncMessage) error {
	slog.InfoContext(ctx, "Processing goal sync message",
		"goal_id", msg.GoalID,
		"operation", msg.Operation)

	err := w.syncer.SyncGoal(ctx, msg.GoalID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cloud.ErrUnavailable):
		slog.InfoContext(ctx, "Cloud account unavailable, leaving goal for the poll loop", "goal_id", msg.GoalID)
		return nil
	case errors.Is(err, services.ErrSuperseded):
		slog.DebugContext(ctx, "Goal sync superseded", "goal_id", msg.GoalID)
		return nil
	default:
		return fmt.Errorf("sync goal %s: %w", msg.GoalID, err)
	}
}
