package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"finplan/internal/core"

	"github.com/google/uuid"
)

// maxStepsPerBill bounds the occurrences created for one identity in a
// single pass. Steps that fall before the latest stored occurrence do not
// count.
const maxStepsPerBill = 1200

// BillRepository is the storage the bill processor needs.
type BillRepository interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	ListBills(ctx context.Context, userID uuid.UUID) ([]core.Bill, error)
	CreateBills(ctx context.Context, bills []core.Bill) error
}

// BillProcessor creates the missing occurrences of recurring bills up to now.
type BillProcessor struct {
	store BillRepository
}

func NewBillProcessor(store BillRepository) *BillProcessor {
	return &BillProcessor{store: store}
}

// ProcessDueBills creates every occurrence that is due on or before now and
// returns how many were created. Running it again with the same now creates
// nothing.
func (p *BillProcessor) ProcessDueBills(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	today := core.DateOf(now)
	created := 0
	for _, u := range users {
		bills, err := p.store.ListBills(ctx, u.ID)
		if err != nil {
			return created, fmt.Errorf("list bills for user %s: %w", u.ID, err)
		}
		due := DueOccurrences(bills, today)
		if len(due) == 0 {
			continue
		}
		if err := p.store.CreateBills(ctx, due); err != nil {
			return created, fmt.Errorf("create bills for user %s: %w", u.ID, err)
		}
		created += len(due)
		slog.InfoContext(ctx, "Created recurring bill occurrences", "user_id", u.ID, "count", len(due))
	}

	slog.InfoContext(ctx, "Recurring bill processing complete",
		"created", created,
		"users", len(users),
		"processing_date", today.String())
	return created, nil
}

// DueOccurrences returns the occurrences missing from bills up to today.
// Bills are grouped by identity; each recurring identity is stepped from its
// earliest occurrence, and only dates after its latest stored occurrence are
// produced. A period that already holds an occurrence is skipped.
func DueOccurrences(bills []core.Bill, today core.Date) []core.Bill {
	groups := make(map[core.BillIdentity][]core.Bill)
	var order []core.BillIdentity
	for _, b := range bills {
		k := b.IdentityKey()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], b)
	}

	var out []core.Bill
	for _, k := range order {
		occ := groups[k]
		sort.SliceStable(occ, func(i, j int) bool {
			return occ[i].FirstInstallment.Before(occ[j].FirstInstallment)
		})
		anchor, latest := occ[0], occ[len(occ)-1]
		if !latest.Recurrence.IsRecurring() {
			continue
		}
		stepper, err := GetRecurrenceStepper(latest.Recurrence)
		if err != nil {
			slog.Warn("Skipping bill with unknown recurrence", "name", latest.Name, "recurrence", latest.Recurrence)
			continue
		}
		if latest.Recurrence == core.Custom && latest.IntervalDays < 1 {
			continue
		}

		seen := make(map[string]struct{}, len(occ))
		for _, b := range occ {
			seen[stepper.PeriodKey(b.FirstInstallment)] = struct{}{}
		}

		prev := anchor.FirstInstallment
		for n, emitted := 1, 0; emitted < maxStepsPerBill; n++ {
			next := stepper.Occurrence(anchor.FirstInstallment, n, latest)
			if next.After(today) || !next.After(prev) {
				break
			}
			prev = next
			if !next.After(latest.FirstInstallment) {
				continue
			}
			key := stepper.PeriodKey(next)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, nextOccurrence(latest, next))
			emitted++
		}
	}
	return out
}

// nextOccurrence copies b to a new row dated at d.
func nextOccurrence(b core.Bill, d core.Date) core.Bill {
	b.ID = uuid.New()
	b.FirstInstallment = d
	b.CreatedAt = time.Now().UTC()
	return b
}
