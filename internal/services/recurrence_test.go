package services

import (
	"testing"

	"finplan/internal/core"
)

func TestMonthStepperClampsWithoutDrift(t *testing.T) {
	s := MonthStepper{Months: 1}
	anchor := core.NewDate(2025, 1, 31)

	tests := []struct {
		n    int
		want core.Date
	}{
		{1, core.NewDate(2025, 2, 28)},
		{2, core.NewDate(2025, 3, 31)},
		{3, core.NewDate(2025, 4, 30)},
		{13, core.NewDate(2026, 2, 28)},
	}
	for _, tt := range tests {
		if got := s.Occurrence(anchor, tt.n, core.Bill{}); !got.Equal(tt.want) {
			t.Errorf("Occurrence(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
	if got := s.PeriodKey(core.NewDate(2025, 2, 28)); got != "2025-02" {
		t.Errorf("PeriodKey() = %q, want 2025-02", got)
	}
}

func TestIntervalStepper(t *testing.T) {
	b := core.Bill{IntervalDays: 10}
	got := IntervalStepper{}.Occurrence(core.NewDate(2025, 1, 25), 1, b)
	if want := core.NewDate(2025, 2, 4); !got.Equal(want) {
		t.Errorf("Occurrence() = %s, want %s", got, want)
	}
}

func TestGetRecurrenceStepper(t *testing.T) {
	for _, r := range []core.Recurrence{core.Monthly, core.Quarterly, core.Yearly, core.Custom} {
		if _, err := GetRecurrenceStepper(r); err != nil {
			t.Errorf("GetRecurrenceStepper(%s) error: %v", r, err)
		}
	}
	if _, err := GetRecurrenceStepper(core.OneTime); err == nil {
		t.Error("one-time bills should have no stepper")
	}

	q, _ := GetRecurrenceStepper(core.Quarterly)
	if got := q.Occurrence(core.NewDate(2025, 11, 30), 1, core.Bill{}); !got.Equal(core.NewDate(2026, 2, 28)) {
		t.Errorf("quarterly Occurrence() = %s, want 2026-02-28", got)
	}
}

func TestRegisterRecurrenceStepper(t *testing.T) {
	orig, _ := GetRecurrenceStepper(core.Yearly)
	t.Cleanup(func() { RegisterRecurrenceStepper(core.Yearly, orig) })

	RegisterRecurrenceStepper(core.Yearly, MonthStepper{Months: 6})
	s, err := GetRecurrenceStepper(core.Yearly)
	if err != nil {
		t.Fatalf("GetRecurrenceStepper() error: %v", err)
	}
	if got := s.Occurrence(core.NewDate(2025, 1, 15), 1, core.Bill{}); !got.Equal(core.NewDate(2025, 7, 15)) {
		t.Errorf("Occurrence() = %s, want 2025-07-15", got)
	}
}
