package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestBillEffectiveCost(t *testing.T) {
	user := uuid.New()
	tests := []struct {
		name   string
		amount int64
		shares int
		want   int64
	}{
		{"not shared", 8000, 1, 8000},
		{"two shares", 8000, 2, 4000},
		{"three shares rounds", 10000, 3, 3333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBill(user, "Internet", Cents(tt.amount), BillInternet, "Fastweb", NewDate(2025, 1, 5), Monthly)
			if err != nil {
				t.Fatalf("NewBill: %v", err)
			}
			b = b.WithShares(tt.shares)
			if err := b.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if got := b.EffectiveCost(); got.Cents != tt.want {
				t.Errorf("EffectiveCost() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestBillIdentityKey(t *testing.T) {
	user := uuid.New()
	a, _ := NewBill(user, "Rent ", Cents(150000), BillHousing, "Landlord", NewDate(2025, 1, 1), Monthly)
	b, _ := NewBill(user, "rent", Cents(150000), BillHousing, " LANDLORD", NewDate(2025, 2, 1), Monthly)
	if a.IdentityKey() != b.IdentityKey() {
		t.Errorf("identity keys differ: %+v vs %+v", a.IdentityKey(), b.IdentityKey())
	}
	c, _ := NewBill(user, "rent", Cents(150000), BillUtilities, "Landlord", NewDate(2025, 2, 1), Monthly)
	if a.IdentityKey() == c.IdentityKey() {
		t.Error("different categories should not share an identity")
	}
}

func TestBillValidate(t *testing.T) {
	user := uuid.New()
	first := NewDate(2025, 1, 1)

	tests := []struct {
		name    string
		mutate  func(*Bill)
		wantErr error
	}{
		{"zero amount", func(b *Bill) { b.Amount = Money{} }, ErrInvalidAmount},
		{"bad category", func(b *Bill) { b.Category = "rocket" }, ErrInvalidCategory},
		{"bad recurrence", func(b *Bill) { b.Recurrence = "fortnightly" }, ErrInvalidRecurrence},
		{"custom without interval", func(b *Bill) { b.Recurrence = Custom }, ErrInvalidInterval},
		{"zero shares", func(b *Bill) { b.NumberOfShares = 0 }, ErrInvalidShares},
		{"empty name", func(b *Bill) { b.Name = "" }, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBill(user, "Power", Cents(9000), BillUtilities, "Enel", first, Monthly)
			if err != nil {
				t.Fatalf("NewBill: %v", err)
			}
			tt.mutate(&b)
			err = b.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestParseRecurrence(t *testing.T) {
	if r, err := ParseRecurrence("Monthly"); err != nil || r != Monthly {
		t.Errorf("ParseRecurrence(Monthly) = %v, %v", r, err)
	}
	if _, err := ParseRecurrence("daily"); err == nil {
		t.Error("expected error for unknown recurrence")
	}
	if OneTime.IsRecurring() {
		t.Error("one-time bill reported as recurring")
	}
}
