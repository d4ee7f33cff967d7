package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recurrence describes how often a bill repeats.
type Recurrence string

const (
	OneTime   Recurrence = "one_time"
	Monthly   Recurrence = "monthly"
	Quarterly Recurrence = "quarterly"
	Yearly    Recurrence = "yearly"
	Custom    Recurrence = "custom"
)

func (r Recurrence) IsValid() bool {
	switch r {
	case OneTime, Monthly, Quarterly, Yearly, Custom:
		return true
	}
	return false
}

// IsRecurring is false only for one-time bills.
func (r Recurrence) IsRecurring() bool {
	return r.IsValid() && r != OneTime
}

func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return r, nil
}

// Bill is a recurring or one-time obligation. Each stored row is one
// occurrence; recurring bills get one row per period.
type Bill struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	Name             string       `json:"name"`
	Amount           Money        `json:"amount"`
	Category         BillCategory `json:"category"`
	Issuer           string       `json:"issuer"`
	FirstInstallment Date         `json:"first_installment"`
	Recurrence       Recurrence   `json:"recurrence"`
	IntervalDays     int          `json:"interval_days,omitempty"`
	Shared           bool         `json:"shared"`
	NumberOfShares   int          `json:"number_of_shares"`
	CreatedAt        time.Time    `json:"created_at"`
}

// BillIdentity groups the occurrences of one recurring obligation.
type BillIdentity struct {
	Name     string
	Issuer   string
	Category BillCategory
}

// NewBill builds and validates a non-shared bill with a fresh identifier.
func NewBill(userID uuid.UUID, name string, amount Money, category BillCategory, issuer string, first Date, recurrence Recurrence) (Bill, error) {
	b := Bill{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             strings.TrimSpace(name),
		Amount:           amount,
		Category:         category,
		Issuer:           strings.TrimSpace(issuer),
		FirstInstallment: first,
		Recurrence:       recurrence,
		NumberOfShares:   1,
		CreatedAt:        time.Now().UTC(),
	}
	return b, b.Validate()
}

// WithShares marks the bill as shared among n co-payers.
func (b Bill) WithShares(n int) Bill {
	b.Shared = n > 1
	b.NumberOfShares = n
	return b
}

// EffectiveCost is the user's share: Amount divided by NumberOfShares when
// shared, rounded to cents, otherwise Amount.
func (b Bill) EffectiveCost() Money {
	if b.Shared && b.NumberOfShares > 1 {
		return b.Amount.Div(int64(b.NumberOfShares))
	}
	return b.Amount
}

func (b Bill) IdentityKey() BillIdentity {
	return BillIdentity{
		Name:     strings.ToLower(strings.TrimSpace(b.Name)),
		Issuer:   strings.ToLower(strings.TrimSpace(b.Issuer)),
		Category: b.Category,
	}
}

func (b Bill) Validate() error {
	if b.UserID == uuid.Nil {
		return invalid("user_id", ErrMissingUser)
	}
	if err := validateName("name", b.Name); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !b.Category.IsValid() {
		return invalid("category", ErrInvalidCategory)
	}
	if err := b.FirstInstallment.Validate(); err != nil {
		return invalid("first_installment", err)
	}
	if !b.Recurrence.IsValid() {
		return invalid("recurrence", ErrInvalidRecurrence)
	}
	if b.Recurrence == Custom && b.IntervalDays < 1 {
		return invalid("interval_days", ErrInvalidInterval)
	}
	if b.NumberOfShares < 1 {
		return invalid("number_of_shares", ErrInvalidShares)
	}
	return nil
}
