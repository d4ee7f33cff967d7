package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"finplan/internal/budget"
	"finplan/internal/core"
	"finplan/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// NewGoalInput carries the fields of a new goal.
type NewGoalInput struct {
	UserID            uuid.UUID
	Name              string
	Method            core.BudgetingMethod
	CustomPercentages core.Percentages
	TargetAmount      *core.Money
	CurrentAmount     core.Money
	StartDate         core.Date
	TargetDate        *core.Date
	AutoClassify      bool
}

// GoalPatch updates the non-nil fields of a goal. The Clear flags remove an
// optional value.
type GoalPatch struct {
	Name              *string
	Method            *core.BudgetingMethod
	CustomPercentages *core.Percentages
	TargetAmount      *core.Money
	ClearTargetAmount bool
	CurrentAmount     *core.Money
	StartDate         *core.Date
	TargetDate        *core.Date
	ClearTargetDate   bool
}

// GoalService owns goal and snapshot writes. Writes are serialised through
// one mutex; every successful write schedules a cloud sync.
type GoalService struct {
	store     GoalRepository
	publisher SyncPublisher
	reports   *ReportCache

	mu  sync.Mutex
	now func() time.Time
}

// NewGoalService wires the service. publisher and reports may be nil.
func NewGoalService(store GoalRepository, publisher SyncPublisher, reports *ReportCache) *GoalService {
	return &GoalService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		now:       time.Now,
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, in NewGoalInput) (*core.FinancialGoal, error) {
	g := core.NewGoal(in.UserID, in.Name, in.Method, in.StartDate)
	g.CustomPercentages = in.CustomPercentages
	g.TargetAmount = in.TargetAmount
	g.CurrentAmount = in.CurrentAmount
	g.TargetDate = in.TargetDate
	if in.AutoClassify {
		budget.AutoClassify(g)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate goal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("save goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created", "goal_id", g.ID, "user_id", g.UserID, "method", g.Method)
	s.afterWrite(ctx, g.ID, storage.OpSync)
	return g, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id uuid.UUID) (*core.FinancialGoal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", id, err)
	}
	return g, nil
}

func (s *GoalService) ListGoals(ctx context.Context, userID uuid.UUID) ([]*core.FinancialGoal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, id uuid.UUID, patch GoalPatch) (*core.FinancialGoal, error) {
	return s.mutate(ctx, id, func(g *core.FinancialGoal) error {
		applyPatch(g, patch)
		return nil
	})
}

func applyPatch(g *core.FinancialGoal, p GoalPatch) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Method != nil {
		g.Method = *p.Method
	}
	if p.CustomPercentages != nil {
		g.CustomPercentages = p.CustomPercentages.Clone()
	}
	switch {
	case p.ClearTargetAmount:
		g.TargetAmount = nil
	case p.TargetAmount != nil:
		v := *p.TargetAmount
		g.TargetAmount = &v
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.StartDate != nil {
		g.StartDate = *p.StartDate
	}
	switch {
	case p.ClearTargetDate:
		g.TargetDate = nil
	case p.TargetDate != nil:
		v := *p.TargetDate
		g.TargetDate = &v
	}
}

func (s *GoalService) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Goal deleted", "goal_id", id)
	s.afterWrite(ctx, id, storage.OpDelete)
	return nil
}

func (s *GoalService) SetClassification(ctx context.Context, goalID uuid.UUID, category string, cctx core.ClassificationContext, t core.ExpenseType) (*core.FinancialGoal, error) {
	return s.mutate(ctx, goalID, func(g *core.FinancialGoal) error {
		return budget.SetClassification(g, category, cctx, t)
	})
}

// AutoClassify replaces both classification maps with the built-in
// need/want associations.
func (s *GoalService) AutoClassify(ctx context.Context, goalID uuid.UUID) (*core.FinancialGoal, error) {
	return s.mutate(ctx, goalID, func(g *core.FinancialGoal) error {
		budget.AutoClassify(g)
		return nil
	})
}

// mutate loads, changes, validates and saves a goal under the write lock.
func (s *GoalService) mutate(ctx context.Context, id uuid.UUID, change func(*core.FinancialGoal) error) (*core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", id, err)
	}
	if err := change(g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate goal: %w", err)
	}
	g.UpdatedAt = s.now().UTC()
	if err := s.store.SaveGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("save goal: %w", err)
	}
	s.afterWrite(ctx, g.ID, storage.OpSync)
	return g, nil
}

// LogActualSavings freezes the month: category totals and target savings
// are captured now and the actual savings are recorded.
func (s *GoalService) LogActualSavings(ctx context.Context, goalID uuid.UUID, m core.Month, actual core.Money) (core.MonthlySpending, error) {
	if m.IsZero() {
		return core.MonthlySpending{}, fmt.Errorf("log savings: %w", core.ErrInvalidMonth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return core.MonthlySpending{}, fmt.Errorf("get goal %s: %w", goalID, err)
	}
	l, err := s.loadLedger(ctx, g.UserID)
	if err != nil {
		return core.MonthlySpending{}, err
	}

	snap := budget.Allocate(m, g, l.incomes, l.transactions, l.bills).Snapshot(s.now().UTC())
	snap.ActualSavings = &actual
	snap.IsMonthComplete = true
	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		return core.MonthlySpending{}, fmt.Errorf("save snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Actual savings logged",
		"goal_id", goalID,
		"month", m.String(),
		"actual_cents", actual.Cents)
	s.afterWrite(ctx, goalID, storage.OpSync)
	return snap, nil
}

// RefreshCurrentMonth upserts the current month's snapshot of every goal
// from live data. Months logged as complete are left alone, and a snapshot
// whose figures did not change is not rewritten. It returns the number of
// snapshots written.
func (s *GoalService) RefreshCurrentMonth(ctx context.Context, now time.Time) (int, error) {
	m := core.MonthOf(now)
	goals, err := s.store.ListAllGoals(ctx)
	if err != nil {
		return 0, fmt.Errorf("list goals: %w", err)
	}

	ledgers := make(map[uuid.UUID]ledger)
	written := 0
	for _, g := range goals {
		if snap, ok := g.Snapshot(m); ok && snap.IsMonthComplete {
			continue
		}
		l, ok := ledgers[g.UserID]
		if !ok {
			if l, err = s.loadLedger(ctx, g.UserID); err != nil {
				return written, err
			}
			ledgers[g.UserID] = l
		}

		snap := budget.Allocate(m, g, l.incomes, l.transactions, l.bills).Snapshot(now.UTC())
		changed, err := s.writeLiveSnapshot(ctx, g.ID, snap)
		if err != nil {
			return written, err
		}
		if changed {
			written++
		}
	}
	slog.InfoContext(ctx, "Current month refreshed", "month", m.String(), "goals", len(goals), "written", written)
	return written, nil
}

// writeLiveSnapshot re-reads the stored snapshot under the write lock so a
// month completed meanwhile is never overwritten.
func (s *GoalService) writeLiveSnapshot(ctx context.Context, goalID uuid.UUID, snap core.MonthlySpending) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.store.ListSnapshots(ctx, goalID)
	if err != nil {
		return false, fmt.Errorf("list snapshots: %w", err)
	}
	for _, old := range history {
		if !old.Month.Equal(snap.Month) {
			continue
		}
		if old.IsMonthComplete || sameFigures(old, snap) {
			return false, nil
		}
	}
	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		return false, fmt.Errorf("save snapshot: %w", err)
	}
	s.afterWrite(ctx, goalID, storage.OpSync)
	return true, nil
}

func sameFigures(a, b core.MonthlySpending) bool {
	if len(a.CategoryTotals) != len(b.CategoryTotals) || !reflect.DeepEqual(a.TargetSavings, b.TargetSavings) {
		return false
	}
	for k, v := range a.CategoryTotals {
		if b.CategoryTotals[k] != v {
			return false
		}
	}
	return true
}

// Report computes the goal's figures for m, served from the report cache
// when possible.
func (s *GoalService) Report(ctx context.Context, goalID uuid.UUID, m core.Month) (budget.Report, error) {
	var gen ReportGeneration
	if s.reports != nil {
		if r, ok := s.reports.Get(goalID, m); ok {
			return r, nil
		}
		gen = s.reports.Generation(goalID)
	}
	g, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return budget.Report{}, fmt.Errorf("get goal %s: %w", goalID, err)
	}
	l, err := s.loadLedger(ctx, g.UserID)
	if err != nil {
		return budget.Report{}, err
	}
	r := budget.Allocate(m, g, l.incomes, l.transactions, l.bills)
	if s.reports != nil {
		s.reports.Set(r, gen)
	}
	return r, nil
}

// InvalidateUser drops cached reports of every goal owned by userID. Ledger
// writes call it.
func (s *GoalService) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if s.reports == nil {
		return
	}
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list goals for cache invalidation", "user_id", userID, "error", err)
		return
	}
	for _, g := range goals {
		s.reports.InvalidateGoal(g.ID)
	}
}

type ledger struct {
	transactions []core.Transaction
	bills        []core.Bill
	incomes      []core.Income
}

// loadLedger reads a user's transactions, bills and incomes concurrently.
func (s *GoalService) loadLedger(ctx context.Context, userID uuid.UUID) (ledger, error) {
	var l ledger
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		l.transactions, err = s.store.ListTransactions(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		l.bills, err = s.store.ListBills(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		l.incomes, err = s.store.ListIncomes(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ledger{}, fmt.Errorf("load ledger for user %s: %w", userID, err)
	}
	return l, nil
}

// afterWrite drops cached reports and schedules a mirror sync. Failures are
// logged: the local write already succeeded.
func (s *GoalService) afterWrite(ctx context.Context, goalID uuid.UUID, op string) {
	if s.reports != nil {
		s.reports.InvalidateGoal(goalID)
	}
	if err := s.store.EnqueueSync(ctx, goalID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue goal sync", "goal_id", goalID, "operation", op, "error", err)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGoalSync(ctx, goalID, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish goal sync", "goal_id", goalID, "operation", op, "error", err)
	}
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
