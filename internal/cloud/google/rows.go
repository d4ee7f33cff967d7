package google

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"finplan/internal/core"
)

// Sheet headers, written by EnsureHeaders and kept in row order.
var (
	goalHeaders     = []interface{}{"ID", "User", "Name", "Method", "Target", "Current", "Start", "Target date", "Updated"}
	snapshotHeaders = []interface{}{"Goal", "Month", "Total", "Actual savings", "Target savings", "Complete", "Categories", "Updated"}
)

func goalRow(g *core.FinancialGoal) []interface{} {
	return []interface{}{
		g.ID.String(),
		g.UserID.String(),
		g.Name,
		g.Method.Label(),
		optionalMoney(g.TargetAmount),
		g.CurrentAmount.String(),
		g.StartDate.String(),
		optionalDate(g.TargetDate),
		g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func snapshotRow(s core.MonthlySpending) ([]interface{}, error) {
	totals := make(map[string]string, len(s.CategoryTotals))
	for k, v := range s.CategoryTotals {
		totals[k] = v.String()
	}
	// encoding/json sorts map keys, so equal totals give equal cells.
	cats, err := json.Marshal(totals)
	if err != nil {
		return nil, fmt.Errorf("encode category totals: %w", err)
	}
	return []interface{}{
		s.GoalID.String(),
		s.Month.String(),
		s.Total().String(),
		optionalMoney(s.ActualSavings),
		optionalMoney(s.TargetSavings),
		s.IsMonthComplete,
		string(cats),
		s.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func optionalMoney(m *core.Money) string {
	if m == nil {
		return ""
	}
	return m.String()
}

func optionalDate(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// findRows returns the 1-based sheet rows whose cells satisfy match.
func findRows(values [][]interface{}, match func([]string) bool) []int {
	var rows []int
	for i, row := range values {
		if match(toStrings(row)) {
			rows = append(rows, i+1)
		}
	}
	sort.Ints(rows)
	return rows
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
