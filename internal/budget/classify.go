package budget

import "finplan/internal/core"

// Built-in associations used by AutoClassify. Categories not listed here are
// classified as other.
var (
	billAssociations = map[core.BillCategory]core.ExpenseType{
		core.BillHousing:        core.ExpenseNeed,
		core.BillUtilities:      core.ExpenseNeed,
		core.BillInternet:       core.ExpenseNeed,
		core.BillPhone:          core.ExpenseNeed,
		core.BillInsurance:      core.ExpenseNeed,
		core.BillTransportation: core.ExpenseNeed,
		core.BillHealthcare:     core.ExpenseNeed,
		core.BillEducation:      core.ExpenseNeed,
		core.BillSubscriptions:  core.ExpenseWant,
		core.BillEntertainment:  core.ExpenseWant,
	}
	transactionAssociations = map[core.TransactionCategory]core.ExpenseType{
		core.TxGroceries:     core.ExpenseNeed,
		core.TxTransport:     core.ExpenseNeed,
		core.TxHealth:        core.ExpenseNeed,
		core.TxUtilities:     core.ExpenseNeed,
		core.TxEducation:     core.ExpenseNeed,
		core.TxDining:        core.ExpenseWant,
		core.TxShopping:      core.ExpenseWant,
		core.TxEntertainment: core.ExpenseWant,
		core.TxTravel:        core.ExpenseWant,
		core.TxGifts:         core.ExpenseWant,
		core.TxPersonalCare:  core.ExpenseWant,
	}
)

// Classify returns the expense type of category in ctx. Unclassified
// categories count as other so they never inflate needs or wants.
func Classify(goal *core.FinancialGoal, category string, ctx core.ClassificationContext) core.ExpenseType {
	var m core.ClassificationMap
	switch ctx {
	case core.ContextBill:
		m = goal.BillClassifications
	case core.ContextTransaction:
		m = goal.TransactionClassifications
	}
	if t, ok := m[core.CategoryKey(ctx, category)]; ok && t.IsValid() {
		return t
	}
	return core.ExpenseOther
}

// SetClassification upserts one entry. Labels are stored under their
// category identifier.
func SetClassification(goal *core.FinancialGoal, category string, ctx core.ClassificationContext, t core.ExpenseType) error {
	if ctx != core.ContextBill && ctx != core.ContextTransaction {
		return &core.ValidationError{Field: "context", Err: core.ErrInvalidContext}
	}
	if !t.IsValid() {
		return &core.ValidationError{Field: "type", Err: core.ErrInvalidExpenseType}
	}
	key := core.CategoryKey(ctx, category)
	if key == "" {
		return &core.ValidationError{Field: "category", Err: core.ErrInvalidCategory}
	}
	goal.ClassificationsFor(ctx)[key] = t
	return nil
}

// AutoClassify replaces both maps with the built-in associations, setting
// every known category.
func AutoClassify(goal *core.FinancialGoal) {
	bills := core.ClassificationMap{}
	for _, c := range core.BillCategories() {
		t, ok := billAssociations[c]
		if !ok {
			t = core.ExpenseOther
		}
		bills[c.ID()] = t
	}
	txs := core.ClassificationMap{}
	for _, c := range core.TransactionCategories() {
		t, ok := transactionAssociations[c]
		if !ok {
			t = core.ExpenseOther
		}
		txs[c.ID()] = t
	}
	goal.BillClassifications = bills
	goal.TransactionClassifications = txs
}

// NormalizeClassifications rewrites legacy label keys to identifiers.
func NormalizeClassifications(goal *core.FinancialGoal) {
	goal.BillClassifications = goal.BillClassifications.Normalized(core.ContextBill)
	goal.TransactionClassifications = goal.TransactionClassifications.Normalized(core.ContextTransaction)
}
