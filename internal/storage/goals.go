package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"finplan/internal/core"

	"github.com/google/uuid"
)

const selectGoal = `SELECT id, user_id, name, method, custom_percentages, target_amount_cents,
	current_amount_cents, start_date, target_date, created_at, updated_at FROM goals`

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g *core.FinancialGoal) error {
	var pct sql.NullString
	if len(g.CustomPercentages) > 0 {
		raw, err := json.Marshal(g.CustomPercentages)
		if err != nil {
			return fmt.Errorf("encode custom percentages: %w", err)
		}
		pct = sql.NullString{String: string(raw), Valid: true}
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO goals (id, user_id, name, method, custom_percentages, target_amount_cents,
			 current_amount_cents, start_date, target_date, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   name = excluded.name,
			   method = excluded.method,
			   custom_percentages = excluded.custom_percentages,
			   target_amount_cents = excluded.target_amount_cents,
			   current_amount_cents = excluded.current_amount_cents,
			   start_date = excluded.start_date,
			   target_date = excluded.target_date,
			   updated_at = excluded.updated_at`,
			g.ID.String(), g.UserID.String(), g.Name, string(g.Method), pct, nullMoney(g.TargetAmount),
			g.CurrentAmount.Cents, g.StartDate.String(), nullDate(g.TargetDate),
			formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert goal: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM goal_classifications WHERE goal_id = ?`, g.ID.String()); err != nil {
			return fmt.Errorf("clear classifications: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO goal_classifications (goal_id, context, category, expense_type) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare classification insert: %w", err)
		}
		defer stmt.Close()
		for _, ctxName := range []core.ClassificationContext{core.ContextBill, core.ContextTransaction} {
			for category, t := range g.ClassificationsFor(ctxName) {
				if _, err := stmt.ExecContext(ctx, g.ID.String(), string(ctxName), category, string(t)); err != nil {
					return fmt.Errorf("insert classification %s/%s: %w", ctxName, category, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Goal saved", "goal_id", g.ID, "method", g.Method)
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id uuid.UUID) (*core.FinancialGoal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, selectGoal+` WHERE id = ?`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", id, notFound(err))
	}
	if err := r.loadGoalChildren(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID uuid.UUID) ([]*core.FinancialGoal, error) {
	return r.listGoals(ctx, selectGoal+` WHERE user_id = ? ORDER BY created_at`, userID.String())
}

func (r *SQLiteRepository) ListAllGoals(ctx context.Context) ([]*core.FinancialGoal, error) {
	return r.listGoals(ctx, selectGoal+` ORDER BY created_at`)
}

func (r *SQLiteRepository) listGoals(ctx context.Context, query string, args ...any) ([]*core.FinancialGoal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	var goals []*core.FinancialGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	rows.Close()

	for _, g := range goals {
		if err := r.loadGoalChildren(ctx, g); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// DeleteGoal removes the goal; classifications and snapshots cascade.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM goals WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Goal deleted", "goal_id", id)
	return nil
}

func (r *SQLiteRepository) loadGoalChildren(ctx context.Context, g *core.FinancialGoal) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT context, category, expense_type FROM goal_classifications WHERE goal_id = ?`, g.ID.String())
	if err != nil {
		return fmt.Errorf("load classifications: %w", err)
	}
	defer rows.Close()

	g.BillClassifications = core.ClassificationMap{}
	g.TransactionClassifications = core.ClassificationMap{}
	for rows.Next() {
		var ctxName, category, t string
		if err := rows.Scan(&ctxName, &category, &t); err != nil {
			return fmt.Errorf("scan classification: %w", err)
		}
		g.ClassificationsFor(core.ClassificationContext(ctxName))[category] = core.ExpenseType(t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate classifications: %w", err)
	}

	history, err := r.ListSnapshots(ctx, g.ID)
	if err != nil {
		return err
	}
	g.History = history
	return nil
}

func scanGoal(s scanner) (*core.FinancialGoal, error) {
	var (
		g                      core.FinancialGoal
		id, uid, method, start string
		created, updated       string
		pct, target            sql.NullString
		targetAmount           sql.NullInt64
		err                    error
	)
	if err = s.Scan(&id, &uid, &g.Name, &method, &pct, &targetAmount, &g.CurrentAmount.Cents,
		&start, &target, &created, &updated); err != nil {
		return nil, err
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if g.UserID, err = uuid.Parse(uid); err != nil {
		return nil, err
	}
	g.Method = core.BudgetingMethod(method)
	if pct.Valid && pct.String != "" {
		if err = json.Unmarshal([]byte(pct.String), &g.CustomPercentages); err != nil {
			return nil, fmt.Errorf("decode custom percentages: %w", err)
		}
	}
	g.TargetAmount = moneyPtr(targetAmount)
	if g.StartDate, err = parseDate(start); err != nil {
		return nil, err
	}
	if target.Valid {
		d, err := parseDate(target.String)
		if err != nil {
			return nil, err
		}
		g.TargetDate = &d
	}
	if g.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &g, nil
}

// Snapshots

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, s core.MonthlySpending) error {
	totals := s.CategoryTotals
	if totals == nil {
		totals = map[string]core.Money{}
	}
	raw, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("encode category totals: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO monthly_spending (goal_id, month, category_totals, actual_savings_cents,
		 target_savings_cents, is_month_complete, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(goal_id, month) DO UPDATE SET
		   category_totals = excluded.category_totals,
		   actual_savings_cents = excluded.actual_savings_cents,
		   target_savings_cents = excluded.target_savings_cents,
		   is_month_complete = excluded.is_month_complete,
		   updated_at = excluded.updated_at`,
		s.GoalID.String(), s.Month.String(), string(raw), nullMoney(s.ActualSavings),
		nullMoney(s.TargetSavings), boolInt(s.IsMonthComplete), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s/%s: %w", s.GoalID, s.Month, err)
	}
	return nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, goalID uuid.UUID) ([]core.MonthlySpending, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, category_totals, actual_savings_cents, target_savings_cents, is_month_complete, updated_at
		 FROM monthly_spending WHERE goal_id = ? ORDER BY month`, goalID.String())
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlySpending
	for rows.Next() {
		var (
			s               core.MonthlySpending
			totals, updated string
			actual, target  sql.NullInt64
			complete        int
		)
		if err := rows.Scan(&s.Month, &totals, &actual, &target, &complete, &updated); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(totals), &s.CategoryTotals); err != nil {
			return nil, fmt.Errorf("decode category totals: %w", err)
		}
		if s.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		s.GoalID = goalID
		s.ActualSavings = moneyPtr(actual)
		s.TargetSavings = moneyPtr(target)
		s.IsMonthComplete = complete != 0
		out = append(out, s)
	}
	return out, rows.Err()
}
