package services

import (
	"context"
	"fmt"
	"log/slog"

	"finplan/internal/core"
	"finplan/internal/storage"

	"github.com/google/uuid"
)

// LedgerService records transactions, bills and incomes. Every change drops
// the owner's cached reports.
type LedgerService struct {
	store storage.LedgerStore
	goals *GoalService
}

func NewLedgerService(store storage.LedgerStore, goals *GoalService) *LedgerService {
	return &LedgerService{store: store, goals: goals}
}

func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction recorded", "id", t.ID, "user_id", t.UserID, "amount_cents", t.Amount.Cents)
	s.invalidate(ctx, t.UserID)
	return nil
}

func (s *LedgerService) Transactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

func (s *LedgerService) AddBill(ctx context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validate bill: %w", err)
	}
	if err := s.store.CreateBill(ctx, b); err != nil {
		return fmt.Errorf("save bill: %w", err)
	}
	slog.InfoContext(ctx, "Bill recorded", "id", b.ID, "user_id", b.UserID, "recurrence", b.Recurrence)
	s.invalidate(ctx, b.UserID)
	return nil
}

func (s *LedgerService) Bills(ctx context.Context, userID uuid.UUID) ([]core.Bill, error) {
	return s.store.ListBills(ctx, userID)
}

func (s *LedgerService) AddIncome(ctx context.Context, in core.Income) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("validate income: %w", err)
	}
	if err := s.store.CreateIncome(ctx, in); err != nil {
		return fmt.Errorf("save income: %w", err)
	}
	slog.InfoContext(ctx, "Income recorded", "id", in.ID, "user_id", in.UserID, "frequency", in.Frequency)
	s.invalidate(ctx, in.UserID)
	return nil
}

func (s *LedgerService) Incomes(ctx context.Context, userID uuid.UUID) ([]core.Income, error) {
	return s.store.ListIncomes(ctx, userID)
}

// DeleteTransaction, DeleteBill and DeleteIncome drop every cached report:
// the owner is not known without another read.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "transaction", id, s.store.DeleteTransaction)
}

func (s *LedgerService) DeleteBill(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "bill", id, s.store.DeleteBill)
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "income", id, s.store.DeleteIncome)
}

func (s *LedgerService) delete(ctx context.Context, kind string, id uuid.UUID, del func(context.Context, uuid.UUID) error) error {
	if err := del(ctx, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	slog.InfoContext(ctx, "Ledger entry deleted", "kind", kind, "id", id)
	if s.goals != nil && s.goals.reports != nil {
		s.goals.reports.Clear()
	}
	return nil
}

func (s *LedgerService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.goals != nil {
		s.goals.InvalidateUser(ctx, userID)
	}
}
