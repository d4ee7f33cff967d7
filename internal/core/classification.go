package core

import (
	"fmt"
	"strings"
)

// ExpenseType is the bucket a spending category counts toward when a goal
// is compared against its budgeting method.
type ExpenseType string

const (
	ExpenseNeed  ExpenseType = "need"
	ExpenseWant  ExpenseType = "want"
	ExpenseOther ExpenseType = "other"
)

func (t ExpenseType) IsValid() bool {
	switch t {
	case ExpenseNeed, ExpenseWant, ExpenseOther:
		return true
	}
	return false
}

func (t ExpenseType) Label() string {
	switch t {
	case ExpenseNeed:
		return "Need"
	case ExpenseWant:
		return "Want"
	default:
		return "Other (savings, debt, giving)"
	}
}

func ParseExpenseType(s string) (ExpenseType, error) {
	t := ExpenseType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidExpenseType, s)
	}
	return t, nil
}

// ClassificationContext selects which of a goal's two maps applies. The same
// category name can mean different things for a bill and a transaction.
type ClassificationContext string

const (
	ContextBill        ClassificationContext = "bill"
	ContextTransaction ClassificationContext = "transaction"
)

func ParseClassificationContext(s string) (ClassificationContext, error) {
	switch c := ClassificationContext(strings.ToLower(strings.TrimSpace(s))); c {
	case ContextBill, ContextTransaction:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidContext, s)
}

// ClassificationMap maps a category identifier to an expense type.
type ClassificationMap map[string]ExpenseType

// Clone returns an independent copy.
func (m ClassificationMap) Clone() ClassificationMap {
	out := make(ClassificationMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Normalized rewrites label keys to identifiers for ctx. When a label and
// its identifier are both present the identifier entry wins.
func (m ClassificationMap) Normalized(ctx ClassificationContext) ClassificationMap {
	out := make(ClassificationMap, len(m))
	for k, v := range m {
		key := CategoryKey(ctx, k)
		if _, exists := out[key]; exists && key != k {
			continue
		}
		out[key] = v
	}
	return out
}
