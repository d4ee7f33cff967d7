package memory

import (
	"context"
	"sync"

	"finplan/internal/cloud"
	"finplan/internal/core"

	"github.com/google/uuid"
)

var _ cloud.Mirror = (*Mirror)(nil)

type snapshotKey struct {
	goal  uuid.UUID
	month string
}

// Mirror keeps pushed goals and snapshots in memory. Status and Err can be
// set to simulate an unavailable account or a failing backend.
type Mirror struct {
	mu        sync.Mutex
	status    cloud.AccountStatus
	err       error
	goals     map[uuid.UUID]core.FinancialGoal
	snapshots map[snapshotKey]core.MonthlySpending
	pushes    int
}

func New() *Mirror {
	return &Mirror{
		status:    cloud.StatusAvailable,
		goals:     map[uuid.UUID]core.FinancialGoal{},
		snapshots: map[snapshotKey]core.MonthlySpending{},
	}
}

// SetStatus changes the reported account status.
func (m *Mirror) SetStatus(s cloud.AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

// FailWith makes every write return err until called with nil.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) AccountStatus(context.Context) (cloud.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *Mirror) PushGoal(ctx context.Context, g *core.FinancialGoal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	cp := *g
	cp.History = nil
	m.goals[g.ID] = cp
	m.pushes++
	return nil
}

func (m *Mirror) PushSnapshot(ctx context.Context, s core.MonthlySpending) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.snapshots[snapshotKey{s.GoalID, s.Month.String()}] = s
	m.pushes++
	return nil
}

func (m *Mirror) DeleteGoal(ctx context.Context, goalID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	delete(m.goals, goalID)
	for k := range m.snapshots {
		if k.goal == goalID {
			delete(m.snapshots, k)
		}
	}
	return nil
}

func (m *Mirror) writable() error {
	if m.err != nil {
		return m.err
	}
	if !m.status.Available() {
		return cloud.ErrUnavailable
	}
	return nil
}

// Goal returns the mirrored copy of a goal.
func (m *Mirror) Goal(id uuid.UUID) (core.FinancialGoal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	return g, ok
}

// Snapshots returns the mirrored snapshots of a goal in no particular order.
func (m *Mirror) Snapshots(goalID uuid.UUID) []core.MonthlySpending {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.MonthlySpending
	for k, s := range m.snapshots {
		if k.goal == goalID {
			out = append(out, s)
		}
	}
	return out
}

// Pushes counts successful goal and snapshot writes.
func (m *Mirror) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}
