package budget

import (
	"strings"

	"finplan/internal/core"
)

// MonthlyAggregate is the slice of a ledger that falls in one month.
type MonthlyAggregate struct {
	Month          core.Month
	Bills          []core.Bill
	Transactions   []core.Transaction
	CategoryTotals map[string]core.Money
}

type billKey struct {
	name     string
	category core.BillCategory
}

// BillsInMonth returns the bills whose first installment lies in m. Rows
// sharing a name and category count once; the first in input order wins.
func BillsInMonth(m core.Month, bills []core.Bill) []core.Bill {
	seen := make(map[billKey]struct{})
	var out []core.Bill
	for _, b := range bills {
		if !m.Contains(b.FirstInstallment.Time) {
			continue
		}
		k := billKey{name: strings.ToLower(strings.TrimSpace(b.Name)), category: b.Category}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}

// TransactionsInMonth returns the transactions dated in m.
func TransactionsInMonth(m core.Month, txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if m.Contains(t.Date.Time) {
			out = append(out, t)
		}
	}
	return out
}

// AggregateMonth filters bills and transactions to the month containing
// date and totals them per category identifier.
func AggregateMonth(date core.Date, txs []core.Transaction, bills []core.Bill) MonthlyAggregate {
	m := date.Month()
	agg := MonthlyAggregate{
		Month:          m,
		Bills:          BillsInMonth(m, bills),
		Transactions:   TransactionsInMonth(m, txs),
		CategoryTotals: make(map[string]core.Money),
	}
	for _, b := range agg.Bills {
		agg.CategoryTotals[b.Category.ID()] = agg.CategoryTotals[b.Category.ID()].Add(b.EffectiveCost())
	}
	for _, t := range agg.Transactions {
		agg.CategoryTotals[t.Category.ID()] = agg.CategoryTotals[t.Category.ID()].Add(t.Amount.Abs())
	}
	return agg
}
