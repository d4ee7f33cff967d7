package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finplan/internal/core"
	"finplan/internal/storage"
	"finplan/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goalFixture struct {
	store  *memory.Store
	pub    *fakePublisher
	svc    *GoalService
	ledger *LedgerService
	user   core.User
}

func newGoalFixture(t *testing.T) *goalFixture {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewGoalService(store, pub, NewReportCache(100, time.Minute))
	svc.now = fixedNow(time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC))
	return &goalFixture{
		store:  store,
		pub:    pub,
		svc:    svc,
		ledger: NewLedgerService(store, svc),
		user:   newUser(t, store),
	}
}

func (f *goalFixture) createGoal(t *testing.T, mutate func(*NewGoalInput)) *core.FinancialGoal {
	t.Helper()
	in := NewGoalInput{
		UserID:    f.user.ID,
		Name:      "House",
		Method:    core.MethodFiftyThirtyTwenty,
		StartDate: core.NewDate(2025, 1, 1),
	}
	if mutate != nil {
		mutate(&in)
	}
	g, err := f.svc.CreateGoal(context.Background(), in)
	require.NoError(t, err)
	return g
}

func TestCreateGoalEnqueuesSync(t *testing.T) {
	f := newGoalFixture(t)
	g := f.createGoal(t, nil)

	stats, err := f.store.SyncQueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, []published{{g.ID, storage.OpSync}}, f.pub.Calls())
	assert.Empty(t, g.BillClassifications)
}

func TestCreateGoalRequiresCustomPercentages(t *testing.T) {
	f := newGoalFixture(t)
	_, err := f.svc.CreateGoal(context.Background(), NewGoalInput{
		UserID:    f.user.ID,
		Name:      "Envelope",
		Method:    core.MethodEnvelope,
		StartDate: core.NewDate(2025, 1, 1),
	})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.ErrorIs(t, err, core.ErrMissingCustomPercentages)
	assert.Empty(t, f.pub.Calls())
}

func TestCreateGoalAutoClassify(t *testing.T) {
	f := newGoalFixture(t)
	g := f.createGoal(t, func(in *NewGoalInput) { in.AutoClassify = true })

	assert.Equal(t, core.ExpenseNeed, g.BillClassifications["housing"])
	assert.Len(t, g.BillClassifications, len(core.BillCategories()))
	assert.Len(t, g.TransactionClassifications, len(core.TransactionCategories()))
}

func TestCreateGoalPublishFailureIsNotReturned(t *testing.T) {
	f := newGoalFixture(t)
	f.pub.err = errBoom
	f.createGoal(t, nil)
	assert.Len(t, f.pub.Calls(), 1)
}

func TestUpdateGoal(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	target := dollars(12000)
	g := f.createGoal(t, func(in *NewGoalInput) { in.TargetAmount = &target })

	name := "Bigger house"
	updated, err := f.svc.UpdateGoal(ctx, g.ID, GoalPatch{Name: &name, ClearTargetAmount: true})
	require.NoError(t, err)
	assert.Equal(t, "Bigger house", updated.Name)
	assert.Nil(t, updated.TargetAmount)

	bad := core.NewDate(2024, 6, 1)
	_, err = f.svc.UpdateGoal(ctx, g.ID, GoalPatch{TargetDate: &bad})
	assert.ErrorIs(t, err, core.ErrTargetDateBeforeStart)

	stored, err := f.svc.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TargetDate, "rejected patch must not be persisted")
}

func TestUpdateMissingGoal(t *testing.T) {
	f := newGoalFixture(t)
	_, err := f.svc.UpdateGoal(context.Background(), uuid.New(), GoalPatch{})
	assert.True(t, IsNotFound(err))
}

func TestDeleteGoalEnqueuesDelete(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	g := f.createGoal(t, nil)

	require.NoError(t, f.svc.DeleteGoal(ctx, g.ID))
	_, err := f.svc.GetGoal(ctx, g.ID)
	assert.True(t, IsNotFound(err))

	calls := f.pub.Calls()
	assert.Equal(t, published{g.ID, storage.OpDelete}, calls[len(calls)-1])
}

func TestSetClassification(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	g := f.createGoal(t, nil)

	updated, err := f.svc.SetClassification(ctx, g.ID, "🏠 Rent/Mortgage", core.ContextBill, core.ExpenseNeed)
	require.NoError(t, err)
	assert.Equal(t, core.ExpenseNeed, updated.BillClassifications["housing"])

	_, err = f.svc.SetClassification(ctx, g.ID, "housing", core.ContextBill, core.ExpenseType("luxury"))
	assert.ErrorIs(t, err, core.ErrInvalidExpenseType)
}

func seedMarch(t *testing.T, f *goalFixture) {
	t.Helper()
	ctx := context.Background()
	salary, err := core.NewIncome(f.user.ID, "Salary", dollars(5000), core.NewDate(2025, 1, 1), core.FreqMonthly, core.BeginningOfMonth)
	require.NoError(t, err)
	require.NoError(t, f.ledger.AddIncome(ctx, salary))
	rent, err := core.NewBill(f.user.ID, "Rent", dollars(1500), core.BillHousing, "Landlord", core.NewDate(2025, 3, 1), core.Monthly)
	require.NoError(t, err)
	require.NoError(t, f.ledger.AddBill(ctx, rent))
}

func TestRefreshCurrentMonthIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	g := f.createGoal(t, func(in *NewGoalInput) { in.AutoClassify = true })
	seedMarch(t, f)
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	n, err := f.svc.RefreshCurrentMonth(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.RefreshCurrentMonth(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	history, err := f.store.ListSnapshots(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, map[string]core.Money{"housing": dollars(1500)}, history[0].CategoryTotals)
	assert.False(t, history[0].IsMonthComplete)
}

func TestLogActualSavingsFreezesMonth(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	target := dollars(12000)
	targetDate := core.NewDate(2026, 1, 1)
	g := f.createGoal(t, func(in *NewGoalInput) {
		in.TargetAmount = &target
		in.TargetDate = &targetDate
		in.AutoClassify = true
	})
	seedMarch(t, f)
	march := core.NewMonth(2025, 3)

	snap, err := f.svc.LogActualSavings(ctx, g.ID, march, dollars(900))
	require.NoError(t, err)
	assert.True(t, snap.IsMonthComplete)
	require.NotNil(t, snap.TargetSavings)
	assert.Equal(t, dollars(1000), *snap.TargetSavings)

	tx, err := core.NewTransaction(f.user.ID, "Dinner", dollars(80), core.TxDining, core.NewDate(2025, 3, 21))
	require.NoError(t, err)
	require.NoError(t, f.ledger.AddTransaction(ctx, tx))

	n, err := f.svc.RefreshCurrentMonth(ctx, time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)

	history, err := f.store.ListSnapshots(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, map[string]core.Money{"housing": dollars(1500)}, history[0].CategoryTotals)
	assert.Equal(t, dollars(900), *history[0].ActualSavings)

	current := dollars(7000)
	_, err = f.svc.UpdateGoal(ctx, g.ID, GoalPatch{CurrentAmount: &current})
	require.NoError(t, err)

	r, err := f.svc.Report(ctx, g.ID, march)
	require.NoError(t, err)
	assert.True(t, r.MonthComplete)
	require.NotNil(t, r.RequiredSavings)
	assert.Equal(t, dollars(1000), *r.RequiredSavings)
	assert.InDelta(t, 0.9, r.Progress, 1e-9)
	assert.Equal(t, map[string]core.Money{"housing": dollars(1500)}, r.CategoryTotals)
}

func TestReportIsCachedUntilLedgerChanges(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)
	g := f.createGoal(t, func(in *NewGoalInput) { in.AutoClassify = true })
	seedMarch(t, f)
	march := core.NewMonth(2025, 3)

	r, err := f.svc.Report(ctx, g.ID, march)
	require.NoError(t, err)
	assert.Equal(t, dollars(1500), r.Spending.Needs)
	_, ok := f.svc.reports.Get(g.ID, march)
	assert.True(t, ok)

	tx, err := core.NewTransaction(f.user.ID, "Groceries", dollars(200), core.TxGroceries, core.NewDate(2025, 3, 5))
	require.NoError(t, err)
	require.NoError(t, f.ledger.AddTransaction(ctx, tx))
	_, ok = f.svc.reports.Get(g.ID, march)
	assert.False(t, ok, "ledger write should invalidate the owner's reports")

	r, err = f.svc.Report(ctx, g.ID, march)
	require.NoError(t, err)
	assert.Equal(t, dollars(1700), r.Spending.Needs)

	require.NoError(t, f.ledger.DeleteTransaction(ctx, tx.ID))
	r, err = f.svc.Report(ctx, g.ID, march)
	require.NoError(t, err)
	assert.Equal(t, dollars(1500), r.Spending.Needs)
}

func TestLedgerRejectsInvalidEntries(t *testing.T) {
	f := newGoalFixture(t)
	err := f.ledger.AddTransaction(context.Background(), core.Transaction{ID: uuid.New(), UserID: f.user.ID, Name: "x", Amount: core.Cents(-1)})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	err = f.ledger.DeleteBill(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
