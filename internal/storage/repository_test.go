package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finplan/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository) core.User {
	t.Helper()
	u, err := core.NewUser("Ada")
	require.NoError(t, err)
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finplan.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Reopening is a no-op migration.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo)

	tx, err := core.NewTransaction(u.ID, "Dinner", core.Cents(4550), core.TxDining, core.NewDate(2025, 3, 8))
	require.NoError(t, err)
	tx.Notes = "birthday"
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	bill, err := core.NewBill(u.ID, "Internet", core.Cents(8000), core.BillInternet, "Fastweb", core.NewDate(2025, 3, 5), core.Monthly)
	require.NoError(t, err)
	bill = bill.WithShares(2)
	require.NoError(t, repo.CreateBill(ctx, bill))

	in, err := core.NewIncome(u.ID, "Salary", core.Cents(500000), core.NewDate(2025, 1, 31), core.FreqMonthly, core.EndOfMonth)
	require.NoError(t, err)
	require.NoError(t, repo.CreateIncome(ctx, in))

	txs, err := repo.ListTransactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx, txs[0])

	bills, err := repo.ListBills(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, bill.ID, bills[0].ID)
	assert.Equal(t, core.Cents(4000), bills[0].EffectiveCost())
	assert.True(t, bills[0].FirstInstallment.Equal(bill.FirstInstallment))

	incomes, err := repo.ListIncomes(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, in, incomes[0])

	require.NoError(t, repo.DeleteTransaction(ctx, tx.ID))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, tx.ID), ErrNotFound)
}

func TestCreateBillsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo)

	b1, err := core.NewBill(u.ID, "Rent", core.Cents(150000), core.BillHousing, "Landlord", core.NewDate(2025, 3, 1), core.Monthly)
	require.NoError(t, err)
	b2 := b1 // same primary key
	err = repo.CreateBills(ctx, []core.Bill{b1, b2})
	require.Error(t, err)

	bills, err := repo.ListBills(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo)

	g := core.NewGoal(u.ID, "House", core.MethodEnvelope, core.NewDate(2025, 1, 15))
	g.CustomPercentages = core.Percentages{
		core.BucketNeeds:   decimal.RequireFromString("0.6"),
		core.BucketSavings: decimal.RequireFromString("0.4"),
	}
	target := core.Cents(1200000)
	targetDate := core.NewDate(2025, 11, 15)
	g.TargetAmount = &target
	g.TargetDate = &targetDate
	g.CurrentAmount = core.Cents(200000)
	g.BillClassifications["housing"] = core.ExpenseNeed
	g.TransactionClassifications["dining"] = core.ExpenseWant
	require.NoError(t, g.Validate())
	require.NoError(t, repo.SaveGoal(ctx, g))

	actual := core.Cents(50000)
	snap := core.MonthlySpending{
		GoalID:          g.ID,
		Month:           core.NewMonth(2025, 2),
		CategoryTotals:  map[string]core.Money{"housing": core.Cents(150000)},
		ActualSavings:   &actual,
		IsMonthComplete: true,
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertSnapshot(ctx, snap))

	got, err := repo.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, core.MethodEnvelope, got.Method)
	assert.True(t, got.CustomPercentages.Get(core.BucketSavings).Equal(decimal.RequireFromString("0.4")))
	require.NotNil(t, got.TargetAmount)
	assert.Equal(t, target, *got.TargetAmount)
	require.NotNil(t, got.TargetDate)
	assert.True(t, got.TargetDate.Equal(targetDate))
	assert.Equal(t, core.ClassificationMap{"housing": core.ExpenseNeed}, got.BillClassifications)
	assert.Equal(t, core.ClassificationMap{"dining": core.ExpenseWant}, got.TransactionClassifications)
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].IsMonthComplete)
	assert.Equal(t, core.Cents(150000), got.History[0].CategoryTotals["housing"])

	// Classifications are replaced, not merged.
	delete(g.BillClassifications, "housing")
	g.BillClassifications["internet"] = core.ExpenseNeed
	require.NoError(t, repo.SaveGoal(ctx, g))
	got, err = repo.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ClassificationMap{"internet": core.ExpenseNeed}, got.BillClassifications)
}

func TestUpsertSnapshotIsUniquePerMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo)
	g := core.NewGoal(u.ID, "Car", core.MethodFiftyThirtyTwenty, core.NewDate(2025, 1, 1))
	require.NoError(t, repo.SaveGoal(ctx, g))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.UpsertSnapshot(ctx, core.MonthlySpending{
			GoalID:         g.ID,
			Month:          core.NewMonth(2025, 3),
			CategoryTotals: map[string]core.Money{"dining": core.Cents(int64(100 * (i + 1)))},
			UpdatedAt:      time.Now().UTC(),
		}))
	}
	snaps, err := repo.ListSnapshots(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, core.Cents(300), snaps[0].CategoryTotals["dining"])
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo)

	tx, _ := core.NewTransaction(u.ID, "Coffee", core.Cents(250), core.TxDining, core.NewDate(2025, 3, 1))
	require.NoError(t, repo.CreateTransaction(ctx, tx))
	g := core.NewGoal(u.ID, "Trip", core.MethodFiftyThirtyTwenty, core.NewDate(2025, 1, 1))
	g.BillClassifications["housing"] = core.ExpenseNeed
	require.NoError(t, repo.SaveGoal(ctx, g))
	require.NoError(t, repo.UpsertSnapshot(ctx, core.MonthlySpending{GoalID: g.ID, Month: core.NewMonth(2025, 3), UpdatedAt: time.Now()}))

	require.NoError(t, repo.DeleteUser(ctx, u.ID))

	txs, err := repo.ListTransactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
	_, err = repo.GetGoal(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	snaps, err := repo.ListSnapshots(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSyncQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	goalID := uuid.New()

	require.NoError(t, repo.EnqueueSync(ctx, goalID, OpSync))
	require.NoError(t, repo.EnqueueSync(ctx, goalID, OpSync)) // coalesced
	require.NoError(t, repo.EnqueueSync(ctx, goalID, OpDelete))

	items, err := repo.DequeueSyncBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, goalID, items[0].GoalID)
	assert.Equal(t, OpSync, items[0].Operation)

	require.NoError(t, repo.MarkSyncProcessing(ctx, items[0].ID))
	require.NoError(t, repo.IncrementSyncAttempt(ctx, items[0].ID, "boom"))
	require.NoError(t, repo.MarkSyncProcessing(ctx, items[1].ID))
	require.NoError(t, repo.MarkSyncFailed(ctx, items[1].ID, "gone"))

	items, err = repo.DequeueSyncBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Attempts)
	assert.Equal(t, "boom", items[0].LastError)

	require.NoError(t, repo.MarkSyncProcessing(ctx, items[0].ID))
	require.NoError(t, repo.ReleaseSync(ctx, items[0].ID))
	items, err = repo.DequeueSyncBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Attempts, "release does not count an attempt")

	require.NoError(t, repo.MarkSyncComplete(ctx, items[0].ID))
	stats, err := repo.SyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Completed: 1, Failed: 1}, stats)

	require.NoError(t, repo.RetryFailedSyncs(ctx))
	require.NoError(t, repo.CleanupCompletedSyncs(ctx, time.Now().Add(time.Minute)))
	stats, err = repo.SyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Pending: 1}, stats)
}

func TestResetStaleProcessing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.EnqueueSync(ctx, uuid.New(), OpSync))
	items, err := repo.DequeueSyncBatch(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSyncProcessing(ctx, items[0].ID))

	require.NoError(t, repo.ResetStaleProcessing(ctx))
	items, err = repo.DequeueSyncBatch(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSecrets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetSecret(ctx, "oauth_token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.PutSecret(ctx, "oauth_token", "v1"))
	require.NoError(t, repo.PutSecret(ctx, "oauth_token", "v2"))
	v, err := repo.GetSecret(ctx, "oauth_token")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
