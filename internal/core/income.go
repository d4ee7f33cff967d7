package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Frequency describes how often an income is paid.
type Frequency string

const (
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
	FreqCustom    Frequency = "custom"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqYearly, FreqCustom:
		return true
	}
	return false
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// PaymentTiming moves a payment falling on a weekend to the nearest
// business day: forward for beginning-of-month, backward for end-of-month.
// End-of-month payments count toward the following month.
type PaymentTiming string

const (
	BeginningOfMonth PaymentTiming = "beginning_of_month"
	EndOfMonth       PaymentTiming = "end_of_month"
)

func ParsePaymentTiming(s string) (PaymentTiming, error) {
	switch t := PaymentTiming(strings.ToLower(strings.TrimSpace(s))); t {
	case BeginningOfMonth, EndOfMonth:
		return t, nil
	case "":
		return BeginningOfMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTiming, s)
}

// Adjust shifts d off a weekend according to the timing.
func (t PaymentTiming) Adjust(d Date) Date {
	switch d.Weekday() {
	case time.Saturday:
		if t == EndOfMonth {
			return d.AddDays(-1)
		}
		return d.AddDays(2)
	case time.Sunday:
		if t == EndOfMonth {
			return d.AddDays(-2)
		}
		return d.AddDays(1)
	}
	return d
}

// Income is a recurring income source.
type Income struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Name         string        `json:"name"`
	Amount       Money         `json:"amount"`
	Category     string        `json:"category"`
	Issuer       string        `json:"issuer"`
	FirstPayment Date          `json:"first_payment"`
	Frequency    Frequency     `json:"frequency"`
	IntervalDays int           `json:"interval_days,omitempty"`
	Timing       PaymentTiming `json:"timing"`
	Notes        string        `json:"notes,omitempty"`
}

// NewIncome builds and validates an income with a fresh identifier.
func NewIncome(userID uuid.UUID, name string, amount Money, first Date, frequency Frequency, timing PaymentTiming) (Income, error) {
	in := Income{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         strings.TrimSpace(name),
		Amount:       amount,
		Category:     "Salary",
		FirstPayment: first,
		Frequency:    frequency,
		Timing:       timing,
	}
	return in, in.Validate()
}

func (in Income) Validate() error {
	if in.UserID == uuid.Nil {
		return invalid("user_id", ErrMissingUser)
	}
	if err := validateName("name", in.Name); err != nil {
		return err
	}
	if err := in.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if err := in.FirstPayment.Validate(); err != nil {
		return invalid("first_payment", err)
	}
	if !in.Frequency.IsValid() {
		return invalid("frequency", ErrInvalidFrequency)
	}
	if in.Frequency == FreqCustom && in.IntervalDays < 1 {
		return invalid("interval_days", ErrInvalidInterval)
	}
	if in.Timing != BeginningOfMonth && in.Timing != EndOfMonth {
		return invalid("timing", ErrInvalidTiming)
	}
	return nil
}

// scheduled returns the unadjusted date of the n-th payment. Month-based
// frequencies count from FirstPayment so month-end days do not drift.
func (in Income) scheduled(n int) Date {
	switch in.Frequency {
	case FreqWeekly:
		return in.FirstPayment.AddDays(7 * n)
	case FreqBiweekly:
		return in.FirstPayment.AddDays(14 * n)
	case FreqMonthly:
		return in.FirstPayment.AddMonthsClamped(n)
	case FreqQuarterly:
		return in.FirstPayment.AddMonthsClamped(3 * n)
	case FreqYearly:
		return in.FirstPayment.AddMonthsClamped(12 * n)
	case FreqCustom:
		step := in.IntervalDays
		if step < 1 {
			step = 1
		}
		return in.FirstPayment.AddDays(step * n)
	}
	return in.FirstPayment
}

// PaymentDate is the business-day adjusted date of the n-th payment.
func (in Income) PaymentDate(n int) Date {
	return in.Timing.Adjust(in.scheduled(n))
}

// EffectiveMonth is the month a payment made on paid counts toward.
func (in Income) EffectiveMonth(paid Date) Month {
	m := paid.Month()
	if in.Timing == EndOfMonth {
		return m.AddDate(0, 1)
	}
	return m
}

// NextPaymentDate returns the first adjusted payment date on or after from.
func (in Income) NextPaymentDate(from Date) Date {
	if in.FirstPayment.IsZero() {
		return Date{}
	}
	for n := 0; ; n++ {
		d := in.PaymentDate(n)
		if !d.Before(from) {
			return d
		}
	}
}

// PaymentsInMonth lists the adjusted payment dates whose effective month is m.
func (in Income) PaymentsInMonth(m Month) []Date {
	if in.FirstPayment.IsZero() || !in.Frequency.IsValid() {
		return nil
	}
	var out []Date
	for n := 0; ; n++ {
		d := in.PaymentDate(n)
		em := in.EffectiveMonth(d)
		if em.After(m) {
			return out
		}
		if em.Equal(m) {
			out = append(out, d)
		}
	}
}
