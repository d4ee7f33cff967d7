// Package budget computes needs, wants and savings for a goal. Everything
// here is pure: callers load the ledger and pass it in.
package budget

import (
	"time"

	"finplan/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Spending is a month's outflow split by expense type.
type Spending struct {
	Needs        core.Money `json:"needs"`
	Wants        core.Money `json:"wants"`
	NotAccounted core.Money `json:"not_accounted"`
}

// Total is needs + wants + not accounted.
func (s Spending) Total() core.Money {
	return s.Needs.Add(s.Wants).Add(s.NotAccounted)
}

func (s *Spending) add(t core.ExpenseType, amount core.Money) {
	switch t {
	case core.ExpenseNeed:
		s.Needs = s.Needs.Add(amount)
	case core.ExpenseWant:
		s.Wants = s.Wants.Add(amount)
	default:
		s.NotAccounted = s.NotAccounted.Add(amount)
	}
}

// billSpending classifies the month's bills in the bill context.
func billSpending(m core.Month, bills []core.Bill, goal *core.FinancialGoal) Spending {
	var s Spending
	for _, b := range BillsInMonth(m, bills) {
		s.add(Classify(goal, b.Category.ID(), core.ContextBill), b.EffectiveCost())
	}
	return s
}

// ComputeSpending classifies bills and transactions separately, each in its
// own context, and accumulates them in cents.
func ComputeSpending(m core.Month, txs []core.Transaction, bills []core.Bill, goal *core.FinancialGoal) Spending {
	s := billSpending(m, bills, goal)
	for _, t := range TransactionsInMonth(m, txs) {
		s.add(Classify(goal, t.Category.ID(), core.ContextTransaction), t.Amount.Abs())
	}
	return s
}

// MonthsBetween counts whole calendar months from start to target. A month
// is dropped when target's day of month is before start's.
func MonthsBetween(start, target core.Date) int {
	sy, sm, sd := start.Date()
	ty, tm, td := target.Date()
	months := (ty-sy)*12 + int(tm) - int(sm)
	if td < sd {
		months--
	}
	return months
}

// RequiredMonthlySavings is (target - current) / months left. It is absent
// when the goal has no target amount or date, or when no whole month
// separates start and target.
func RequiredMonthlySavings(goal *core.FinancialGoal) (core.Money, bool) {
	if goal.TargetAmount == nil || goal.TargetDate == nil {
		return core.Money{}, false
	}
	if !goal.TargetDate.After(goal.StartDate) {
		return core.Money{}, false
	}
	months := MonthsBetween(goal.StartDate, *goal.TargetDate)
	if months <= 0 {
		return core.Money{}, false
	}
	return goal.TargetAmount.Sub(goal.CurrentAmount).Div(int64(months)), true
}

// PotentialSavings estimates how much could still be saved in m: the gap
// between the method's needs and wants targets and the fixed bill spending.
// Transactions are treated as adjustable and ignored. Never negative.
func PotentialSavings(income core.Money, m core.Month, txs []core.Transaction, bills []core.Bill, goal *core.FinancialGoal) core.Money {
	pct := goal.Percentages()
	fixed := billSpending(m, bills, goal)
	needsGap := income.Mul(pct.Get(core.BucketNeeds)).Sub(fixed.Needs)
	wantsGap := income.Mul(pct.Get(core.BucketWants)).Sub(fixed.Wants)
	return needsGap.Add(wantsGap).Max(core.Money{})
}

// MonthlySavingsProgress is actual savings over the required amount,
// clamped to [0,1]. It is 0 when no positive requirement exists.
func MonthlySavingsProgress(m core.Month, goal *core.FinancialGoal, incomes []core.Income, txs []core.Transaction, bills []core.Bill) float64 {
	required, ok := RequiredMonthlySavings(goal)
	if !ok {
		return 0
	}
	actual := MonthlyIncome(incomes, m).Sub(ComputeSpending(m, txs, bills, goal).Total())
	return progress(actual, required)
}

func progress(actual, required core.Money) float64 {
	if required.Cents <= 0 || actual.Cents <= 0 {
		return 0
	}
	ratio := actual.Decimal().Div(required.Decimal())
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return 1
	}
	f, _ := ratio.Float64()
	return f
}

// Report bundles a goal's figures for one month.
type Report struct {
	GoalID           uuid.UUID                  `json:"goal_id"`
	Month            core.Month                 `json:"month"`
	Method           core.BudgetingMethod       `json:"method"`
	Percentages      core.Percentages           `json:"percentages"`
	Income           core.Money                 `json:"income"`
	Spending         Spending                   `json:"spending"`
	Targets          map[core.Bucket]core.Money `json:"targets"`
	MonthlySavings   core.Money                 `json:"monthly_savings"`
	RequiredSavings  *core.Money                `json:"required_savings,omitempty"`
	Progress         float64                    `json:"progress"`
	PotentialSavings core.Money                 `json:"potential_savings"`
	CategoryTotals   map[string]core.Money      `json:"category_totals"`
	MonthComplete    bool                       `json:"month_complete"`
	ActualSavings    *core.Money                `json:"actual_savings,omitempty"`
}

// Allocate computes the full report for goal in m. A month the user logged
// as complete keeps its frozen actual savings; everything else is live.
func Allocate(m core.Month, goal *core.FinancialGoal, incomes []core.Income, txs []core.Transaction, bills []core.Bill) Report {
	pct := goal.Percentages()
	income := MonthlyIncome(incomes, m)
	spending := ComputeSpending(m, txs, bills, goal)

	r := Report{
		GoalID:           goal.ID,
		Month:            m,
		Method:           goal.Method,
		Percentages:      pct,
		Income:           income,
		Spending:         spending,
		Targets:          make(map[core.Bucket]core.Money, len(pct)),
		MonthlySavings:   income.Sub(spending.Total()),
		PotentialSavings: PotentialSavings(income, m, txs, bills, goal),
		CategoryTotals:   AggregateMonth(m.FirstDay(), txs, bills).CategoryTotals,
	}
	for b, p := range pct {
		r.Targets[b] = income.Mul(p)
	}
	if required, ok := RequiredMonthlySavings(goal); ok {
		r.RequiredSavings = &required
		r.Progress = progress(r.MonthlySavings, required)
	}
	if snap, ok := goal.Snapshot(m); ok && snap.IsMonthComplete {
		freeze(&r, snap)
	}
	return r
}

// freeze replaces the live figures of a completed month with the ones
// captured when it was logged. A snapshot logged without a target keeps the
// live requirement.
func freeze(r *Report, snap core.MonthlySpending) {
	r.MonthComplete = true
	r.ActualSavings = snap.ActualSavings
	if snap.TargetSavings != nil {
		target := *snap.TargetSavings
		r.RequiredSavings = &target
	}
	r.CategoryTotals = make(map[string]core.Money, len(snap.CategoryTotals))
	for k, v := range snap.CategoryTotals {
		r.CategoryTotals[k] = v
	}
	r.Progress = 0
	if snap.ActualSavings != nil && r.RequiredSavings != nil {
		r.Progress = progress(*snap.ActualSavings, *r.RequiredSavings)
	}
}

// Snapshot turns the report into the month's spending record.
func (r Report) Snapshot(at time.Time) core.MonthlySpending {
	return core.MonthlySpending{
		GoalID:         r.GoalID,
		Month:          r.Month,
		CategoryTotals: r.CategoryTotals,
		TargetSavings:  r.RequiredSavings,
		UpdatedAt:      at,
	}
}
