package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finplan/internal/cloud"
	"finplan/internal/storage"

	"github.com/google/uuid"
)

// ErrSuperseded is returned by SyncGoal when a newer sync for the same goal
// cancelled it.
var ErrSuperseded = errors.New("sync superseded by a newer request")

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before marking an item failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

type inflightSync struct {
	seq    uint64
	cancel context.CancelFunc
}

// SyncProcessor drains the sync queue into the cloud mirror. At most one
// sync per goal is in flight; a newer one cancels the older.
type SyncProcessor struct {
	queue  storage.SyncQueue
	goals  storage.GoalStore
	mirror cloud.Mirror
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	flightMu sync.Mutex
	flights  map[uuid.UUID]inflightSync
	seq      uint64
}

func NewSyncProcessor(queue storage.SyncQueue, goals storage.GoalStore, mirror cloud.Mirror, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		queue:   queue,
		goals:   goals,
		mirror:  mirror,
		config:  config,
		flights: make(map[uuid.UUID]inflightSync),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	p.stopCh, p.doneCh = stopCh, doneCh
	p.mu.Unlock()

	// Items left processing by a crashed worker go back to pending.
	if err := p.queue.ResetStaleProcessing(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	}

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it or for ctx. Only the first call
// after Start signals; later calls return nil.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	close(stopCh)
	p.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.processBatch(ctx, stopCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx, stopCh)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// processBatch handles one batch of pending items. Nothing is touched while
// the cloud account is unavailable.
func (p *SyncProcessor) processBatch(ctx context.Context, stopCh <-chan struct{}) {
	items, err := p.queue.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue sync batch", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	if ok := p.accountAvailable(ctx); !ok {
		return
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	for _, item := range items {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.queue.MarkSyncProcessing(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark item as processing", "id", item.ID, "error", err)
			continue
		}

		var processErr error
		switch item.Operation {
		case storage.OpSync, storage.OpDelete:
			processErr = p.runExclusive(ctx, item.GoalID, p.mirrorGoal)
		default:
			processErr = fmt.Errorf("unknown operation: %s", item.Operation)
		}

		switch {
		case processErr == nil:
			p.handleSuccess(ctx, item)
		case errors.Is(processErr, cloud.ErrUnavailable), errors.Is(processErr, ErrSuperseded):
			p.release(ctx, item, processErr)
		default:
			p.handleFailure(ctx, item, processErr)
		}
	}
}

func (p *SyncProcessor) accountAvailable(ctx context.Context) bool {
	status, err := p.mirror.AccountStatus(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not determine cloud account status", "error", err)
		return false
	}
	if !status.Available() {
		slog.InfoContext(ctx, "Cloud account unavailable, leaving sync items pending", "status", status)
		return false
	}
	return true
}

// SyncGoal mirrors one goal right away, cancelling any sync of the same goal
// that is still running. Pending queue items for the goal are completed on
// success.
func (p *SyncProcessor) SyncGoal(ctx context.Context, goalID uuid.UUID) error {
	if !p.accountAvailable(ctx) {
		return cloud.ErrUnavailable
	}
	if err := p.runExclusive(ctx, goalID, p.mirrorGoal); err != nil {
		return err
	}
	for _, op := range []string{storage.OpSync, storage.OpDelete} {
		if err := p.queue.CompleteGoalSyncs(ctx, goalID, op); err != nil {
			slog.WarnContext(ctx, "Failed to complete queued syncs", "goal_id", goalID, "operation", op, "error", err)
		}
	}
	return nil
}

// runExclusive runs fn for goalID after cancelling the previous run for the
// same goal.
func (p *SyncProcessor) runExclusive(ctx context.Context, goalID uuid.UUID, fn func(context.Context, uuid.UUID) error) error {
	runCtx, cancel := context.WithCancel(ctx)

	p.flightMu.Lock()
	if prev, ok := p.flights[goalID]; ok {
		prev.cancel()
		slog.DebugContext(ctx, "Cancelled in-flight sync", "goal_id", goalID)
	}
	p.seq++
	seq := p.seq
	p.flights[goalID] = inflightSync{seq: seq, cancel: cancel}
	p.flightMu.Unlock()

	defer func() {
		p.flightMu.Lock()
		if cur, ok := p.flights[goalID]; ok && cur.seq == seq {
			delete(p.flights, goalID)
		}
		p.flightMu.Unlock()
		cancel()
	}()

	err := fn(runCtx, goalID)
	if runCtx.Err() != nil && ctx.Err() == nil {
		return ErrSuperseded
	}
	return err
}

// mirrorGoal pushes the goal and its history, or deletes it from the mirror
// when it no longer exists locally.
func (p *SyncProcessor) mirrorGoal(ctx context.Context, goalID uuid.UUID) error {
	g, err := p.goals.GetGoal(ctx, goalID)
	if errors.Is(err, storage.ErrNotFound) {
		if err := p.mirror.DeleteGoal(ctx, goalID); err != nil {
			return fmt.Errorf("delete from mirror: %w", err)
		}
		slog.InfoContext(ctx, "Deleted goal from mirror", "goal_id", goalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get goal %s: %w", goalID, err)
	}

	if err := p.mirror.PushGoal(ctx, g); err != nil {
		return fmt.Errorf("push goal: %w", err)
	}
	for _, s := range g.History {
		if err := p.mirror.PushSnapshot(ctx, s); err != nil {
			return fmt.Errorf("push snapshot %s: %w", s.Month, err)
		}
	}
	slog.InfoContext(ctx, "Mirrored goal", "goal_id", goalID, "snapshots", len(g.History))
	return nil
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item storage.SyncItem) {
	if err := p.queue.MarkSyncComplete(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync complete", "id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) release(ctx context.Context, item storage.SyncItem, reason error) {
	slog.InfoContext(ctx, "Sync item returned to pending", "id", item.ID, "reason", reason)
	if err := p.queue.ReleaseSync(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to release sync item", "id", item.ID, "error", err)
	}
}

// handleFailure counts the attempt and marks the item failed once
// MaxRetries is reached.
func (p *SyncProcessor) handleFailure(ctx context.Context, item storage.SyncItem, processErr error) {
	slog.WarnContext(ctx, "Sync processing failed",
		"id", item.ID,
		"goal_id", item.GoalID,
		"operation", item.Operation,
		"attempt", item.Attempts+1,
		"error", processErr)

	if item.Attempts+1 >= int64(p.config.MaxRetries) {
		if err := p.queue.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed", "id", item.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Sync item failed permanently after max retries",
			"id", item.ID,
			"goal_id", item.GoalID,
			"attempts", item.Attempts+1)
		return
	}
	if err := p.queue.IncrementSyncAttempt(ctx, item.ID, processErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to increment sync attempt", "id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	if err := p.queue.CleanupCompletedSyncs(ctx, cutoff); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed syncs", "error", err)
	}
}

func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncStats, error) {
	return p.queue.SyncQueueStats(ctx)
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) error {
	return p.queue.RetryFailedSyncs(ctx)
}
