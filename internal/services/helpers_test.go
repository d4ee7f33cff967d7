package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finplan/internal/core"
	"finplan/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type published struct {
	goalID uuid.UUID
	op     string
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []published
	err   error
}

func (p *fakePublisher) PublishGoalSync(_ context.Context, goalID uuid.UUID, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{goalID, op})
	return p.err
}

func (p *fakePublisher) Calls() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.calls...)
}

var errBoom = errors.New("boom")

func dollars(d int64) core.Money { return core.Cents(d * 100) }

func newUser(t *testing.T, store *memory.Store) core.User {
	t.Helper()
	u, err := core.NewUser("Ada")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
