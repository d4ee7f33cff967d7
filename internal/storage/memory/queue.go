package memory

import (
	"context"
	"fmt"
	"time"

	"finplan/internal/storage"

	"github.com/google/uuid"
)

func (s *Store) EnqueueSync(_ context.Context, goalID uuid.UUID, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.queue {
		if it.GoalID == goalID && it.Operation == operation && it.Status == storage.StatusPending {
			return nil
		}
	}
	s.nextSyncID++
	now := time.Now()
	s.queue = append(s.queue, storage.SyncItem{
		ID:        s.nextSyncID,
		GoalID:    goalID,
		Operation: operation,
		Status:    storage.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (s *Store) DequeueSyncBatch(_ context.Context, limit int) ([]storage.SyncItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.SyncItem
	for _, it := range s.queue {
		if len(out) >= limit {
			break
		}
		if it.Status == storage.StatusPending {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) update(id int64, fn func(*storage.SyncItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].ID == id {
			fn(&s.queue[i])
			s.queue[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("sync item %d: %w", id, storage.ErrNotFound)
}

func (s *Store) MarkSyncProcessing(_ context.Context, id int64) error {
	return s.update(id, func(it *storage.SyncItem) { it.Status = storage.StatusProcessing })
}

func (s *Store) MarkSyncComplete(_ context.Context, id int64) error {
	return s.update(id, func(it *storage.SyncItem) { it.Status = storage.StatusCompleted })
}

func (s *Store) MarkSyncFailed(_ context.Context, id int64, errMsg string) error {
	return s.update(id, func(it *storage.SyncItem) {
		it.Status = storage.StatusFailed
		it.Attempts++
		it.LastError = errMsg
	})
}

func (s *Store) IncrementSyncAttempt(_ context.Context, id int64, errMsg string) error {
	return s.update(id, func(it *storage.SyncItem) {
		it.Status = storage.StatusPending
		it.Attempts++
		it.LastError = errMsg
	})
}

func (s *Store) ReleaseSync(_ context.Context, id int64) error {
	return s.update(id, func(it *storage.SyncItem) { it.Status = storage.StatusPending })
}

func (s *Store) CompleteGoalSyncs(_ context.Context, goalID uuid.UUID, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		it := &s.queue[i]
		if it.GoalID == goalID && it.Operation == operation && it.Status == storage.StatusPending {
			it.Status = storage.StatusCompleted
			it.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *Store) ResetStaleProcessing(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].Status == storage.StatusProcessing {
			s.queue[i].Status = storage.StatusPending
		}
	}
	return nil
}

func (s *Store) CleanupCompletedSyncs(_ context.Context, olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = filter(s.queue, func(it storage.SyncItem) bool {
		return it.Status != storage.StatusCompleted || !it.UpdatedAt.Before(olderThan)
	})
	return nil
}

func (s *Store) SyncQueueStats(context.Context) (storage.SyncStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st storage.SyncStats
	for _, it := range s.queue {
		switch it.Status {
		case storage.StatusPending:
			st.Pending++
		case storage.StatusProcessing:
			st.Processing++
		case storage.StatusCompleted:
			st.Completed++
		case storage.StatusFailed:
			st.Failed++
		}
	}
	return st, nil
}

func (s *Store) RetryFailedSyncs(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].Status == storage.StatusFailed {
			s.queue[i].Status = storage.StatusPending
			s.queue[i].Attempts = 0
		}
	}
	return nil
}
