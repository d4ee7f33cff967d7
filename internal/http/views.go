package http

import (
	"time"

	"finplan/internal/budget"
	"finplan/internal/core"

	"github.com/google/uuid"
)

// Views pair every amount with its formatted rendering so clients need no
// locale data.

type moneyView struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

type presenter struct {
	f *core.Formatter
}

func (p presenter) money(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Formatted: p.f.Format(m)}
}

func (p presenter) optMoney(m *core.Money) *moneyView {
	if m == nil {
		return nil
	}
	v := p.money(*m)
	return &v
}

func (p presenter) moneyMap(in map[string]core.Money) map[string]moneyView {
	out := make(map[string]moneyView, len(in))
	for k, v := range in {
		out[k] = p.money(v)
	}
	return out
}

func percentStrings(pct core.Percentages) map[string]string {
	out := make(map[string]string, len(pct))
	for b, d := range pct {
		out[string(b)] = d.String()
	}
	return out
}

type transactionView struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	Amount        moneyView `json:"amount"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"category_label"`
	Date          core.Date `json:"date"`
	Notes         string    `json:"notes,omitempty"`
	Shared        bool      `json:"shared"`
}

func (p presenter) transaction(t core.Transaction) transactionView {
	return transactionView{
		ID:            t.ID,
		UserID:        t.UserID,
		Name:          t.Name,
		Amount:        p.money(t.Amount),
		Category:      string(t.Category),
		CategoryLabel: t.Category.Label(),
		Date:          t.Date,
		Notes:         t.Notes,
		Shared:        t.Shared,
	}
}

type billView struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Name             string          `json:"name"`
	Amount           moneyView       `json:"amount"`
	EffectiveCost    moneyView       `json:"effective_cost"`
	Category         string          `json:"category"`
	CategoryLabel    string          `json:"category_label"`
	Issuer           string          `json:"issuer"`
	FirstInstallment core.Date       `json:"first_installment"`
	Recurrence       core.Recurrence `json:"recurrence"`
	IntervalDays     int             `json:"interval_days,omitempty"`
	Shared           bool            `json:"shared"`
	NumberOfShares   int             `json:"number_of_shares"`
}

func (p presenter) bill(b core.Bill) billView {
	return billView{
		ID:               b.ID,
		UserID:           b.UserID,
		Name:             b.Name,
		Amount:           p.money(b.Amount),
		EffectiveCost:    p.money(b.EffectiveCost()),
		Category:         string(b.Category),
		CategoryLabel:    b.Category.Label(),
		Issuer:           b.Issuer,
		FirstInstallment: b.FirstInstallment,
		Recurrence:       b.Recurrence,
		IntervalDays:     b.IntervalDays,
		Shared:           b.Shared,
		NumberOfShares:   b.NumberOfShares,
	}
}

type incomeView struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	Name         string             `json:"name"`
	Amount       moneyView          `json:"amount"`
	Category     string             `json:"category,omitempty"`
	Issuer       string             `json:"issuer,omitempty"`
	FirstPayment core.Date          `json:"first_payment"`
	Frequency    core.Frequency     `json:"frequency"`
	IntervalDays int                `json:"interval_days,omitempty"`
	Timing       core.PaymentTiming `json:"timing"`
	Notes        string             `json:"notes,omitempty"`
}

func (p presenter) income(in core.Income) incomeView {
	return incomeView{
		ID:           in.ID,
		UserID:       in.UserID,
		Name:         in.Name,
		Amount:       p.money(in.Amount),
		Category:     in.Category,
		Issuer:       in.Issuer,
		FirstPayment: in.FirstPayment,
		Frequency:    in.Frequency,
		IntervalDays: in.IntervalDays,
		Timing:       in.Timing,
		Notes:        in.Notes,
	}
}

type snapshotView struct {
	Month           core.Month           `json:"month"`
	CategoryTotals  map[string]moneyView `json:"category_totals"`
	ActualSavings   *moneyView           `json:"actual_savings,omitempty"`
	TargetSavings   *moneyView           `json:"target_savings,omitempty"`
	IsMonthComplete bool                 `json:"is_month_complete"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (p presenter) snapshot(s core.MonthlySpending) snapshotView {
	return snapshotView{
		Month:           s.Month,
		CategoryTotals:  p.moneyMap(s.CategoryTotals),
		ActualSavings:   p.optMoney(s.ActualSavings),
		TargetSavings:   p.optMoney(s.TargetSavings),
		IsMonthComplete: s.IsMonthComplete,
		UpdatedAt:       s.UpdatedAt,
	}
}

type goalView struct {
	ID                         uuid.UUID              `json:"id"`
	UserID                     uuid.UUID              `json:"user_id"`
	Name                       string                 `json:"name"`
	Method                     core.BudgetingMethod   `json:"method"`
	MethodLabel                string                 `json:"method_label"`
	Percentages                map[string]string      `json:"percentages"`
	CustomPercentages          bool                   `json:"custom_percentages"`
	TargetAmount               *moneyView             `json:"target_amount,omitempty"`
	CurrentAmount              moneyView              `json:"current_amount"`
	StartDate                  core.Date              `json:"start_date"`
	TargetDate                 *core.Date             `json:"target_date,omitempty"`
	BillClassifications        core.ClassificationMap `json:"bill_classifications"`
	TransactionClassifications core.ClassificationMap `json:"transaction_classifications"`
	History                    []snapshotView         `json:"history"`
	CreatedAt                  time.Time              `json:"created_at"`
	UpdatedAt                  time.Time              `json:"updated_at"`
}

func (p presenter) goal(g *core.FinancialGoal) goalView {
	v := goalView{
		ID:                         g.ID,
		UserID:                     g.UserID,
		Name:                       g.Name,
		Method:                     g.Method,
		MethodLabel:                g.Method.Label(),
		Percentages:                percentStrings(g.Percentages()),
		CustomPercentages:          len(g.CustomPercentages) > 0,
		TargetAmount:               p.optMoney(g.TargetAmount),
		CurrentAmount:              p.money(g.CurrentAmount),
		StartDate:                  g.StartDate,
		TargetDate:                 g.TargetDate,
		BillClassifications:        g.BillClassifications,
		TransactionClassifications: g.TransactionClassifications,
		History:                    make([]snapshotView, 0, len(g.History)),
		CreatedAt:                  g.CreatedAt,
		UpdatedAt:                  g.UpdatedAt,
	}
	for _, s := range g.History {
		v.History = append(v.History, p.snapshot(s))
	}
	return v
}

type spendingView struct {
	Needs        moneyView `json:"needs"`
	Wants        moneyView `json:"wants"`
	NotAccounted moneyView `json:"not_accounted"`
	Total        moneyView `json:"total"`
}

type reportView struct {
	GoalID           uuid.UUID            `json:"goal_id"`
	Month            core.Month           `json:"month"`
	Method           core.BudgetingMethod `json:"method"`
	Percentages      map[string]string    `json:"percentages"`
	Income           moneyView            `json:"income"`
	Spending         spendingView         `json:"spending"`
	Targets          map[string]moneyView `json:"targets"`
	MonthlySavings   moneyView            `json:"monthly_savings"`
	RequiredSavings  *moneyView           `json:"required_savings,omitempty"`
	Progress         float64              `json:"progress"`
	PotentialSavings moneyView            `json:"potential_savings"`
	CategoryTotals   map[string]moneyView `json:"category_totals"`
	MonthComplete    bool                 `json:"month_complete"`
	ActualSavings    *moneyView           `json:"actual_savings,omitempty"`
}

func (p presenter) report(r budget.Report) reportView {
	targets := make(map[string]moneyView, len(r.Targets))
	for b, m := range r.Targets {
		targets[string(b)] = p.money(m)
	}
	return reportView{
		GoalID:      r.GoalID,
		Month:       r.Month,
		Method:      r.Method,
		Percentages: percentStrings(r.Percentages),
		Income:      p.money(r.Income),
		Spending: spendingView{
			Needs:        p.money(r.Spending.Needs),
			Wants:        p.money(r.Spending.Wants),
			NotAccounted: p.money(r.Spending.NotAccounted),
			Total:        p.money(r.Spending.Total()),
		},
		Targets:          targets,
		MonthlySavings:   p.money(r.MonthlySavings),
		RequiredSavings:  p.optMoney(r.RequiredSavings),
		Progress:         r.Progress,
		PotentialSavings: p.money(r.PotentialSavings),
		CategoryTotals:   p.moneyMap(r.CategoryTotals),
		MonthComplete:    r.MonthComplete,
		ActualSavings:    p.optMoney(r.ActualSavings),
	}
}

type methodView struct {
	ID                        core.BudgetingMethod `json:"id"`
	Label                     string               `json:"label"`
	Description               string               `json:"description"`
	BestFor                   []string             `json:"best_for"`
	Defaults                  map[string]string    `json:"defaults,omitempty"`
	RequiresCustomPercentages bool                 `json:"requires_custom_percentages"`
}

func methodViews() []methodView {
	methods := core.Methods()
	out := make([]methodView, 0, len(methods))
	for _, m := range methods {
		v := methodView{
			ID:                        m.Method,
			Label:                     m.Label,
			Description:               m.Description,
			BestFor:                   m.BestFor,
			RequiresCustomPercentages: m.Method.RequiresCustomPercentages(),
		}
		if len(m.Defaults) > 0 {
			v.Defaults = percentStrings(m.Defaults)
		}
		out = append(out, v)
	}
	return out
}
