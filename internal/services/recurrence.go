// Package services provides business logic and orchestration services.
//
// This file holds the recurrence strategies used to step a recurring bill
// to its next occurrence.
package services

import (
	"fmt"

	"finplan/internal/core"
)

// RecurrenceStepper computes the occurrences of a recurring bill.
type RecurrenceStepper interface {
	// Occurrence returns the n-th occurrence after anchor (n >= 1). Stepping
	// from the anchor rather than the previous occurrence keeps month-end
	// dates from drifting (Jan 31, Feb 28, Mar 31).
	Occurrence(anchor core.Date, n int, b core.Bill) core.Date
	// PeriodKey names the period an occurrence falls in. Two occurrences of
	// the same bill never share a period.
	PeriodKey(d core.Date) string
}

// MonthStepper steps a fixed number of calendar months, clamping to the
// last day of shorter months.
type MonthStepper struct{ Months int }

func (s MonthStepper) Occurrence(anchor core.Date, n int, _ core.Bill) core.Date {
	return anchor.AddMonthsClamped(n * s.Months)
}

func (MonthStepper) PeriodKey(d core.Date) string { return d.Month().String() }

// IntervalStepper steps the bill's IntervalDays.
type IntervalStepper struct{}

func (IntervalStepper) Occurrence(anchor core.Date, n int, b core.Bill) core.Date {
	return anchor.AddDays(n * b.IntervalDays)
}

// PeriodKey is the day itself: short custom intervals may repeat within a
// month.
func (IntervalStepper) PeriodKey(d core.Date) string { return d.String() }

var recurrenceSteppers = map[core.Recurrence]RecurrenceStepper{
	core.Monthly:   MonthStepper{Months: 1},
	core.Quarterly: MonthStepper{Months: 3},
	core.Yearly:    MonthStepper{Months: 12},
	core.Custom:    IntervalStepper{},
}

// GetRecurrenceStepper returns the stepper for r. One-time bills have none.
func GetRecurrenceStepper(r core.Recurrence) (RecurrenceStepper, error) {
	s, ok := recurrenceSteppers[r]
	if !ok {
		return nil, fmt.Errorf("no stepper for recurrence %q", r)
	}
	return s, nil
}

// RegisterRecurrenceStepper adds or replaces the stepper for r.
func RegisterRecurrenceStepper(r core.Recurrence, s RecurrenceStepper) {
	recurrenceSteppers[r] = s
}
