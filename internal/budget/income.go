package budget

import "finplan/internal/core"

// MonthlyIncome sums every payment whose effective month is m.
func MonthlyIncome(incomes []core.Income, m core.Month) core.Money {
	var total core.Money
	for _, in := range incomes {
		for range in.PaymentsInMonth(m) {
			total = total.Add(in.Amount)
		}
	}
	return total
}
