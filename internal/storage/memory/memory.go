// Package memory is an in-process Store used by tests and the memory
// backend. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finplan/internal/core"
	"finplan/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]core.User
	transactions []core.Transaction
	bills        []core.Bill
	incomes      []core.Income
	goals        map[uuid.UUID]*core.FinancialGoal
	snapshots    map[uuid.UUID]map[string]core.MonthlySpending
	secrets      map[string]string
	queue        []storage.SyncItem
	nextSyncID   int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     map[uuid.UUID]core.User{},
		goals:     map[uuid.UUID]*core.FinancialGoal{},
		snapshots: map[uuid.UUID]map[string]core.MonthlySpending{},
		secrets:   map[string]string{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error { return nil }

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, storage.ErrNotFound)
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s already exists", u.ID)
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteUser mirrors the SQL cascade.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	s.transactions = filter(s.transactions, func(t core.Transaction) bool { return t.UserID != id })
	s.bills = filter(s.bills, func(b core.Bill) bool { return b.UserID != id })
	s.incomes = filter(s.incomes, func(in core.Income) bool { return in.UserID != id })
	for gid, g := range s.goals {
		if g.UserID == id {
			delete(s.goals, gid)
			delete(s.snapshots, gid)
		}
	}
	return nil
}

func (s *Store) requireUser(id uuid.UUID) error {
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	return nil
}

// Ledger

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(t.UserID); err != nil {
		return err
	}
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.transactions, func(t core.Transaction) bool { return t.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.transactions)
	s.transactions = filter(s.transactions, func(t core.Transaction) bool { return t.ID != id })
	if len(s.transactions) == n {
		return notFound("transaction", id)
	}
	return nil
}

func (s *Store) CreateBill(ctx context.Context, b core.Bill) error {
	return s.CreateBills(ctx, []core.Bill{b})
}

func (s *Store) CreateBills(_ context.Context, bills []core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uuid.UUID]struct{}{}
	for _, b := range s.bills {
		seen[b.ID] = struct{}{}
	}
	for _, b := range bills {
		if err := s.requireUser(b.UserID); err != nil {
			return err
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("bill %s already exists", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	s.bills = append(s.bills, bills...)
	return nil
}

func (s *Store) ListBills(_ context.Context, userID uuid.UUID) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.bills, func(b core.Bill) bool { return b.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].FirstInstallment.Before(out[j].FirstInstallment) })
	return out, nil
}

func (s *Store) DeleteBill(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.bills)
	s.bills = filter(s.bills, func(b core.Bill) bool { return b.ID != id })
	if len(s.bills) == n {
		return notFound("bill", id)
	}
	return nil
}

func (s *Store) CreateIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(in.UserID); err != nil {
		return err
	}
	s.incomes = append(s.incomes, in)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, userID uuid.UUID) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(s.incomes, func(in core.Income) bool { return in.UserID == userID }), nil
}

func (s *Store) DeleteIncome(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.incomes)
	s.incomes = filter(s.incomes, func(in core.Income) bool { return in.ID != id })
	if len(s.incomes) == n {
		return notFound("income", id)
	}
	return nil
}

// Goals

func (s *Store) SaveGoal(_ context.Context, g *core.FinancialGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(g.UserID); err != nil {
		return err
	}
	cp := cloneGoal(g)
	cp.History = nil
	if old, ok := s.goals[g.ID]; ok {
		cp.CreatedAt = old.CreatedAt
	}
	s.goals[g.ID] = cp
	return nil
}

func (s *Store) GetGoal(_ context.Context, id uuid.UUID) (*core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, notFound("goal", id)
	}
	return s.hydrate(g), nil
}

func (s *Store) ListGoals(_ context.Context, userID uuid.UUID) ([]*core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedGoals(func(g *core.FinancialGoal) bool { return g.UserID == userID }), nil
}

func (s *Store) ListAllGoals(context.Context) ([]*core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedGoals(func(*core.FinancialGoal) bool { return true }), nil
}

func (s *Store) sortedGoals(keep func(*core.FinancialGoal) bool) []*core.FinancialGoal {
	var out []*core.FinancialGoal
	for _, g := range s.goals {
		if keep(g) {
			out = append(out, s.hydrate(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) DeleteGoal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return notFound("goal", id)
	}
	delete(s.goals, id)
	delete(s.snapshots, id)
	return nil
}

func (s *Store) UpsertSnapshot(_ context.Context, snap core.MonthlySpending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[snap.GoalID]; !ok {
		return notFound("goal", snap.GoalID)
	}
	if s.snapshots[snap.GoalID] == nil {
		s.snapshots[snap.GoalID] = map[string]core.MonthlySpending{}
	}
	s.snapshots[snap.GoalID][snap.Month.String()] = cloneSnapshot(snap)
	return nil
}

func (s *Store) ListSnapshots(_ context.Context, goalID uuid.UUID) ([]core.MonthlySpending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history(goalID), nil
}

func (s *Store) history(goalID uuid.UUID) []core.MonthlySpending {
	var out []core.MonthlySpending
	for _, snap := range s.snapshots[goalID] {
		out = append(out, cloneSnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func (s *Store) hydrate(g *core.FinancialGoal) *core.FinancialGoal {
	cp := cloneGoal(g)
	cp.History = s.history(g.ID)
	return cp
}

// Secrets

func (s *Store) GetSecret(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.secrets[key]
	if !ok {
		return "", notFound("secret", key)
	}
	return v, nil
}

func (s *Store) PutSecret(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func cloneGoal(g *core.FinancialGoal) *core.FinancialGoal {
	cp := *g
	cp.CustomPercentages = g.CustomPercentages.Clone()
	cp.BillClassifications = g.BillClassifications.Clone()
	cp.TransactionClassifications = g.TransactionClassifications.Clone()
	if g.TargetAmount != nil {
		v := *g.TargetAmount
		cp.TargetAmount = &v
	}
	if g.TargetDate != nil {
		v := *g.TargetDate
		cp.TargetDate = &v
	}
	return &cp
}

func cloneSnapshot(s core.MonthlySpending) core.MonthlySpending {
	totals := make(map[string]core.Money, len(s.CategoryTotals))
	for k, v := range s.CategoryTotals {
		totals[k] = v
	}
	s.CategoryTotals = totals
	s.UpdatedAt = s.UpdatedAt.UTC().Truncate(time.Microsecond)
	return s
}
