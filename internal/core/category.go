package core

import (
	"fmt"
	"strings"
)

// BillCategory identifies the kind of a bill. The string value is the stable
// identifier used as a storage and map key; Label is for display only.
type BillCategory string

const (
	BillHousing        BillCategory = "housing"
	BillUtilities      BillCategory = "utilities"
	BillInternet       BillCategory = "internet"
	BillPhone          BillCategory = "phone"
	BillInsurance      BillCategory = "insurance"
	BillSubscriptions  BillCategory = "subscriptions"
	BillTransportation BillCategory = "transportation"
	BillLoan           BillCategory = "loan"
	BillCreditCard     BillCategory = "credit_card"
	BillHealthcare     BillCategory = "healthcare"
	BillEducation      BillCategory = "education"
	BillEntertainment  BillCategory = "entertainment"
	BillOther          BillCategory = "other"
)

var billCategories = []struct {
	id    BillCategory
	label string
}{
	{BillHousing, "🏠 Rent/Mortgage"},
	{BillUtilities, "💡 Utilities"},
	{BillInternet, "🌐 Internet"},
	{BillPhone, "📱 Phone"},
	{BillInsurance, "🛡️ Insurance"},
	{BillSubscriptions, "📺 Subscriptions"},
	{BillTransportation, "🚗 Transportation"},
	{BillLoan, "🏦 Loan"},
	{BillCreditCard, "💳 Credit Card"},
	{BillHealthcare, "🏥 Healthcare"},
	{BillEducation, "🎓 Education"},
	{BillEntertainment, "🎮 Entertainment"},
	{BillOther, "📦 Other"},
}

// BillCategories returns every bill category in display order.
func BillCategories() []BillCategory {
	out := make([]BillCategory, len(billCategories))
	for i, c := range billCategories {
		out[i] = c.id
	}
	return out
}

func (c BillCategory) ID() string { return string(c) }

func (c BillCategory) Label() string {
	for _, bc := range billCategories {
		if bc.id == c {
			return bc.label
		}
	}
	return string(c)
}

func (c BillCategory) IsValid() bool {
	for _, bc := range billCategories {
		if bc.id == c {
			return true
		}
	}
	return false
}

// ParseBillCategory accepts an identifier or a display label, so maps keyed
// by the old labels can be migrated in place.
func ParseBillCategory(s string) (BillCategory, error) {
	s = strings.TrimSpace(s)
	for _, bc := range billCategories {
		if string(bc.id) == s || bc.label == s {
			return bc.id, nil
		}
	}
	return "", fmt.Errorf("%w: bill category %q", ErrInvalidCategory, s)
}

// TransactionCategory identifies the kind of a one-off transaction.
type TransactionCategory string

const (
	TxGroceries     TransactionCategory = "groceries"
	TxDining        TransactionCategory = "dining"
	TxShopping      TransactionCategory = "shopping"
	TxTransport     TransactionCategory = "transport"
	TxEntertainment TransactionCategory = "entertainment"
	TxHealth        TransactionCategory = "health"
	TxTravel        TransactionCategory = "travel"
	TxGifts         TransactionCategory = "gifts"
	TxPersonalCare  TransactionCategory = "personal_care"
	TxEducation     TransactionCategory = "education"
	TxUtilities     TransactionCategory = "utilities"
	TxSavings       TransactionCategory = "savings"
	TxOther         TransactionCategory = "other"
)

var transactionCategories = []struct {
	id    TransactionCategory
	label string
}{
	{TxGroceries, "🛒 Groceries"},
	{TxDining, "🍽️ Dining Out"},
	{TxShopping, "🛍️ Shopping"},
	{TxTransport, "🚕 Transport"},
	{TxEntertainment, "🎬 Entertainment"},
	{TxHealth, "💊 Health"},
	{TxTravel, "✈️ Travel"},
	{TxGifts, "🎁 Gifts"},
	{TxPersonalCare, "💇 Personal Care"},
	{TxEducation, "📚 Education"},
	{TxUtilities, "💡 Utilities"},
	{TxSavings, "💰 Savings"},
	{TxOther, "📦 Other"},
}

// TransactionCategories returns every transaction category in display order.
func TransactionCategories() []TransactionCategory {
	out := make([]TransactionCategory, len(transactionCategories))
	for i, c := range transactionCategories {
		out[i] = c.id
	}
	return out
}

func (c TransactionCategory) ID() string { return string(c) }

func (c TransactionCategory) Label() string {
	for _, tc := range transactionCategories {
		if tc.id == c {
			return tc.label
		}
	}
	return string(c)
}

func (c TransactionCategory) IsValid() bool {
	for _, tc := range transactionCategories {
		if tc.id == c {
			return true
		}
	}
	return false
}

// ParseTransactionCategory accepts an identifier or a display label.
func ParseTransactionCategory(s string) (TransactionCategory, error) {
	s = strings.TrimSpace(s)
	for _, tc := range transactionCategories {
		if string(tc.id) == s || tc.label == s {
			return tc.id, nil
		}
	}
	return "", fmt.Errorf("%w: transaction category %q", ErrInvalidCategory, s)
}

// CategoryKey normalises a classification key for the given context.
// Known labels become identifiers; unknown keys are returned trimmed.
func CategoryKey(ctx ClassificationContext, s string) string {
	switch ctx {
	case ContextBill:
		if c, err := ParseBillCategory(s); err == nil {
			return c.ID()
		}
	case ContextTransaction:
		if c, err := ParseTransactionCategory(s); err == nil {
			return c.ID()
		}
	}
	return strings.TrimSpace(s)
}
