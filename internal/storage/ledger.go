package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"finplan/internal/core"

	"github.com/google/uuid"
)

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, name, amount_cents, category, date, notes, shared)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), t.Name, t.Amount.Cents, t.Category.ID(),
		t.Date.String(), t.Notes, boolInt(t.Shared))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount_cents, category, date, notes, shared
		 FROM transactions WHERE user_id = ? ORDER BY date, rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                  core.Transaction
			id, uid, cat, date string
			shared             int
		)
		if err := rows.Scan(&id, &uid, &t.Name, &t.Amount.Cents, &cat, &date, &t.Notes, &shared); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse transaction id: %w", err)
		}
		if t.UserID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		if t.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", id, err)
		}
		t.Category = core.TransactionCategory(core.CategoryKey(core.ContextTransaction, cat))
		t.Shared = shared != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM transactions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

// Bills

const insertBill = `INSERT INTO bills (id, user_id, name, amount_cents, category, issuer, first_installment,
	recurrence, interval_days, shared, number_of_shares, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func billArgs(b core.Bill) []any {
	return []any{
		b.ID.String(), b.UserID.String(), b.Name, b.Amount.Cents, b.Category.ID(), b.Issuer,
		b.FirstInstallment.String(), string(b.Recurrence), b.IntervalDays, boolInt(b.Shared),
		b.NumberOfShares, formatTime(b.CreatedAt),
	}
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) error {
	if _, err := r.db.ExecContext(ctx, insertBill, billArgs(b)...); err != nil {
		return fmt.Errorf("create bill: %w", err)
	}
	slog.InfoContext(ctx, "Bill saved",
		"id", b.ID,
		"user_id", b.UserID,
		"name", b.Name,
		"first_installment", b.FirstInstallment.String())
	return nil
}

func (r *SQLiteRepository) CreateBills(ctx context.Context, bills []core.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertBill)
		if err != nil {
			return fmt.Errorf("prepare bill insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range bills {
			if _, err := stmt.ExecContext(ctx, billArgs(b)...); err != nil {
				return fmt.Errorf("create bill %q: %w", b.Name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListBills(ctx context.Context, userID uuid.UUID) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount_cents, category, issuer, first_installment, recurrence,
		        interval_days, shared, number_of_shares, created_at
		 FROM bills WHERE user_id = ? ORDER BY first_installment, rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		var (
			b                                 core.Bill
			id, uid, cat, first, rec, created string
			shared                            int
		)
		if err := rows.Scan(&id, &uid, &b.Name, &b.Amount.Cents, &cat, &b.Issuer, &first, &rec,
			&b.IntervalDays, &shared, &b.NumberOfShares, &created); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		if b.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse bill id: %w", err)
		}
		if b.UserID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		if b.FirstInstallment, err = parseDate(first); err != nil {
			return nil, fmt.Errorf("bill %s: %w", id, err)
		}
		if b.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("bill %s: %w", id, err)
		}
		b.Category = core.BillCategory(core.CategoryKey(core.ContextBill, cat))
		b.Recurrence = core.Recurrence(rec)
		b.Shared = shared != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM bills WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	return nil
}

// Incomes

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, user_id, name, amount_cents, category, issuer, first_payment,
		 frequency, interval_days, timing, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID.String(), in.UserID.String(), in.Name, in.Amount.Cents, in.Category, in.Issuer,
		in.FirstPayment.String(), string(in.Frequency), in.IntervalDays, string(in.Timing), in.Notes)
	if err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	slog.InfoContext(ctx, "Income saved", "id", in.ID, "user_id", in.UserID, "frequency", in.Frequency)
	return nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID uuid.UUID) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount_cents, category, issuer, first_payment, frequency,
		        interval_days, timing, notes
		 FROM incomes WHERE user_id = ? ORDER BY first_payment, rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in                        core.Income
			id, uid, first, freq, tim string
		)
		if err := rows.Scan(&id, &uid, &in.Name, &in.Amount.Cents, &in.Category, &in.Issuer, &first,
			&freq, &in.IntervalDays, &tim, &in.Notes); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse income id: %w", err)
		}
		if in.UserID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		if in.FirstPayment, err = parseDate(first); err != nil {
			return nil, fmt.Errorf("income %s: %w", id, err)
		}
		in.Frequency = core.Frequency(freq)
		in.Timing = core.PaymentTiming(tim)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM incomes WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	return nil
}
