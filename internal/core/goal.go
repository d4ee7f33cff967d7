package core

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FinancialGoal is a savings plan following a budgeting method.
type FinancialGoal struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Name              string          `json:"name"`
	Method            BudgetingMethod `json:"method"`
	CustomPercentages Percentages     `json:"custom_percentages,omitempty"`
	// TargetAmount is nil for open-ended goals.
	TargetAmount  *Money `json:"target_amount,omitempty"`
	CurrentAmount Money  `json:"current_amount"`
	StartDate     Date   `json:"start_date"`
	TargetDate    *Date  `json:"target_date,omitempty"`

	BillClassifications        ClassificationMap `json:"bill_classifications"`
	TransactionClassifications ClassificationMap `json:"transaction_classifications"`

	History   []MonthlySpending `json:"history,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewGoal creates a goal with empty classification maps.
func NewGoal(userID uuid.UUID, name string, method BudgetingMethod, start Date) *FinancialGoal {
	now := time.Now().UTC()
	return &FinancialGoal{
		ID:                         uuid.New(),
		UserID:                     userID,
		Name:                       strings.TrimSpace(name),
		Method:                     method,
		StartDate:                  start,
		BillClassifications:        ClassificationMap{},
		TransactionClassifications: ClassificationMap{},
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
}

// Percentages returns the custom override when set, otherwise the method's
// defaults. Methods without defaults yield an empty map.
func (g *FinancialGoal) Percentages() Percentages {
	if len(g.CustomPercentages) > 0 {
		return g.CustomPercentages.Clone()
	}
	return g.Method.DefaultPercentages()
}

// ClassificationsFor returns the map used in ctx, creating it when missing.
func (g *FinancialGoal) ClassificationsFor(ctx ClassificationContext) ClassificationMap {
	switch ctx {
	case ContextBill:
		if g.BillClassifications == nil {
			g.BillClassifications = ClassificationMap{}
		}
		return g.BillClassifications
	default:
		if g.TransactionClassifications == nil {
			g.TransactionClassifications = ClassificationMap{}
		}
		return g.TransactionClassifications
	}
}

// Snapshot returns the stored snapshot for m.
func (g *FinancialGoal) Snapshot(m Month) (MonthlySpending, bool) {
	for _, s := range g.History {
		if s.Month.Equal(m) {
			return s, true
		}
	}
	return MonthlySpending{}, false
}

// PutSnapshot inserts or replaces the snapshot for s.Month, keeping History
// sorted by month.
func (g *FinancialGoal) PutSnapshot(s MonthlySpending) {
	for i := range g.History {
		if g.History[i].Month.Equal(s.Month) {
			g.History[i] = s
			return
		}
	}
	g.History = append(g.History, s)
	sort.Slice(g.History, func(i, j int) bool { return g.History[i].Month.Before(g.History[j].Month) })
}

func (g *FinancialGoal) Validate() error {
	if g.UserID == uuid.Nil {
		return invalid("user_id", ErrMissingUser)
	}
	if err := validateName("name", g.Name); err != nil {
		return err
	}
	if !g.Method.IsValid() {
		return invalid("method", ErrInvalidMethod)
	}
	if len(g.CustomPercentages) > 0 {
		if err := g.CustomPercentages.Validate(); err != nil {
			return invalid("custom_percentages", err)
		}
	} else if g.Method.RequiresCustomPercentages() {
		return invalid("custom_percentages", ErrMissingCustomPercentages)
	}
	if g.TargetAmount != nil && g.TargetAmount.IsNegative() {
		return invalid("target_amount", ErrNegativeAmount)
	}
	if g.CurrentAmount.IsNegative() {
		return invalid("current_amount", ErrNegativeAmount)
	}
	if err := g.StartDate.Validate(); err != nil {
		return invalid("start_date", err)
	}
	if g.TargetDate != nil && !g.TargetDate.After(g.StartDate) {
		return invalid("target_date", ErrTargetDateBeforeStart)
	}
	for _, ctx := range []ClassificationContext{ContextBill, ContextTransaction} {
		for k, t := range g.ClassificationsFor(ctx) {
			if !t.IsValid() {
				return invalid(string(ctx)+"_classifications["+k+"]", ErrInvalidExpenseType)
			}
		}
	}
	return nil
}

// MonthlySpending is one month's category totals for a goal. Once the month
// is logged as complete its figures are frozen.
type MonthlySpending struct {
	GoalID          uuid.UUID        `json:"goal_id"`
	Month           Month            `json:"month"`
	CategoryTotals  map[string]Money `json:"category_totals"`
	ActualSavings   *Money           `json:"actual_savings,omitempty"`
	TargetSavings   *Money           `json:"target_savings,omitempty"`
	IsMonthComplete bool             `json:"is_month_complete"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Total sums every category.
func (s MonthlySpending) Total() Money {
	var t Money
	for _, v := range s.CategoryTotals {
		t = t.Add(v)
	}
	return t
}
