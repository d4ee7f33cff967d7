package worker

import (
	"context"
	"errors"
	"testing"

	"finplan/internal/amqp"
	"finplan/internal/cloud"
	"finplan/internal/services"

	"github.com/google/uuid"
)

type stubSyncer struct {
	err   error
	calls []uuid.UUID
}

func (s *stubSyncer) SyncGoal(_ context.Context, id uuid.UUID) error {
	s.calls = append(s.calls, id)
	return s.err
}

func TestHandleSyncMessage(t *testing.T) {
	boom := errors.New("sheets quota exceeded")

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"synced", nil, false},
		{"account unavailable acks", cloud.ErrUnavailable, false},
		{"superseded acks", services.ErrSuperseded, false},
		{"wrapped unavailable acks", errors.Join(errors.New("status"), cloud.ErrUnavailable), false},
		{"other failure requeues", boom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &stubSyncer{err: tt.err}
			w := NewSyncWorker(syncer)
			msg := amqp.NewGoalSyncMessage(uuid.New(), "sync")

			err := w.HandleSyncMessage(context.Background(), msg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleSyncMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, boom) {
				t.Errorf("error should wrap cause, got %v", err)
			}
			if len(syncer.calls) != 1 || syncer.calls[0] != msg.GoalID {
				t.Errorf("SyncGoal calls = %v, want [%s]", syncer.calls, msg.GoalID)
			}
		})
	}
}
