package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Bucket is a named share of income in a budgeting method.
type Bucket string

const (
	BucketNeeds   Bucket = "needs"
	BucketWants   Bucket = "wants"
	BucketSavings Bucket = "savings"
	BucketDebt    Bucket = "debt"
	BucketGiving  Bucket = "giving"
)

var bucketLabels = map[Bucket]string{
	BucketNeeds:   "Needs",
	BucketWants:   "Wants",
	BucketSavings: "Savings",
	BucketDebt:    "Debt Repayment",
	BucketGiving:  "Giving",
}

// Buckets returns all buckets in display order.
func Buckets() []Bucket {
	return []Bucket{BucketNeeds, BucketWants, BucketSavings, BucketDebt, BucketGiving}
}

func (b Bucket) Label() string {
	if l, ok := bucketLabels[b]; ok {
		return l
	}
	return string(b)
}

func (b Bucket) IsValid() bool {
	_, ok := bucketLabels[b]
	return ok
}

// ParseBucket accepts an identifier or a display label, case-insensitively.
func ParseBucket(s string) (Bucket, error) {
	s = strings.TrimSpace(s)
	for b, l := range bucketLabels {
		if strings.EqualFold(string(b), s) || strings.EqualFold(l, s) {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBucket, s)
}

// Percentages maps buckets to fractions of income.
type Percentages map[Bucket]decimal.Decimal

// Get returns the fraction for b, zero when absent.
func (p Percentages) Get(b Bucket) decimal.Decimal {
	if v, ok := p[b]; ok {
		return v
	}
	return decimal.Zero
}

// Validate checks every fraction is in [0,1] and the total does not exceed 1.
func (p Percentages) Validate() error {
	total := decimal.Zero
	for b, v := range p {
		if !b.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidBucket, b)
		}
		if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return ErrInvalidPercentages
		}
		total = total.Add(v)
	}
	if total.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidPercentages
	}
	return nil
}

func (p Percentages) Clone() Percentages {
	if p == nil {
		return nil
	}
	out := make(Percentages, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// BudgetingMethod is one of the fixed allocation templates.
type BudgetingMethod string

const (
	MethodFiftyThirtyTwenty     BudgetingMethod = "fifty_thirty_twenty"
	MethodSeventyTwentyTen      BudgetingMethod = "seventy_twenty_ten"
	MethodSixtyTwentyTwenty     BudgetingMethod = "sixty_twenty_twenty"
	MethodSixtyThirtyTen        BudgetingMethod = "sixty_thirty_ten"
	MethodFortyThirtyTwentyTen  BudgetingMethod = "forty_thirty_twenty_ten"
	MethodThirtyThirtyThirtyTen BudgetingMethod = "thirty_thirty_thirty_ten"
	MethodPayYourselfFirst      BudgetingMethod = "pay_yourself_first"
	MethodZeroBased             BudgetingMethod = "zero_based"
	MethodEnvelope              BudgetingMethod = "envelope"
)

// MethodInfo describes a budgeting method.
type MethodInfo struct {
	Method      BudgetingMethod
	Label       string
	Description string
	BestFor     []string
	Defaults    Percentages
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var methodCatalog = []MethodInfo{
	{
		Method:      MethodFiftyThirtyTwenty,
		Label:       "50/30/20 Rule",
		Description: "Half of income covers needs, 30% goes to wants and 20% to savings.",
		BestFor:     []string{"Beginners", "Stable income", "Simple budgeting"},
		Defaults:    Percentages{BucketNeeds: pct("0.50"), BucketWants: pct("0.30"), BucketSavings: pct("0.20")},
	},
	{
		Method:      MethodSeventyTwentyTen,
		Label:       "70/20/10 Rule",
		Description: "70% for living expenses, 20% for savings and 10% for debt repayment.",
		BestFor:     []string{"Paying off debt", "Moderate savings goals"},
		Defaults:    Percentages{BucketNeeds: pct("0.50"), BucketWants: pct("0.20"), BucketSavings: pct("0.20"), BucketDebt: pct("0.10")},
	},
	{
		Method:      MethodSixtyTwentyTwenty,
		Label:       "60/20/20 Rule",
		Description: "60% for needs, 20% for wants and 20% for savings.",
		BestFor:     []string{"High cost of living areas", "Families"},
		Defaults:    Percentages{BucketNeeds: pct("0.60"), BucketWants: pct("0.20"), BucketSavings: pct("0.20")},
	},
	{
		Method:      MethodSixtyThirtyTen,
		Label:       "60/30/10 Rule",
		Description: "60% for needs, 30% for wants and 10% for savings.",
		BestFor:     []string{"Lower income", "Getting started with saving"},
		Defaults:    Percentages{BucketNeeds: pct("0.60"), BucketWants: pct("0.30"), BucketSavings: pct("0.10")},
	},
	{
		Method:      MethodFortyThirtyTwentyTen,
		Label:       "40/30/20/10 Rule",
		Description: "40% for needs, 30% for wants, 20% for savings and 10% for giving.",
		BestFor:     []string{"Charitable giving", "Balanced lifestyle"},
		Defaults:    Percentages{BucketNeeds: pct("0.40"), BucketWants: pct("0.30"), BucketSavings: pct("0.20"), BucketGiving: pct("0.10")},
	},
	{
		Method:      MethodThirtyThirtyThirtyTen,
		Label:       "30/30/30/10 Rule",
		Description: "Equal shares for needs, wants and savings with 10% for giving.",
		BestFor:     []string{"High income", "Aggressive saving"},
		Defaults:    Percentages{BucketNeeds: pct("0.30"), BucketWants: pct("0.30"), BucketSavings: pct("0.30"), BucketGiving: pct("0.10")},
	},
	{
		Method:      MethodPayYourselfFirst,
		Label:       "Pay Yourself First",
		Description: "Savings are set aside first; the rest covers needs and wants.",
		BestFor:     []string{"Building wealth", "Retirement planning", "Disciplined savers"},
		Defaults:    Percentages{BucketSavings: pct("0.30"), BucketNeeds: pct("0.50"), BucketWants: pct("0.20")},
	},
	{
		Method:      MethodZeroBased,
		Label:       "Zero-Based Budgeting",
		Description: "Every unit of income is assigned a job until nothing is left unallocated.",
		BestFor:     []string{"Detail-oriented planners", "Irregular expenses", "Maximum control"},
	},
	{
		Method:      MethodEnvelope,
		Label:       "Envelope System",
		Description: "Income is split into spending envelopes; when one is empty, spending in it stops.",
		BestFor:     []string{"Overspenders", "Cash budgeting", "Visual learners"},
	},
}

// Methods returns the full catalog in display order.
func Methods() []MethodInfo {
	out := make([]MethodInfo, len(methodCatalog))
	for i, m := range methodCatalog {
		m.Defaults = m.Defaults.Clone()
		m.BestFor = append([]string(nil), m.BestFor...)
		out[i] = m
	}
	return out
}

func (m BudgetingMethod) info() (MethodInfo, bool) {
	for _, mi := range methodCatalog {
		if mi.Method == m {
			return mi, true
		}
	}
	return MethodInfo{}, false
}

func (m BudgetingMethod) IsValid() bool {
	_, ok := m.info()
	return ok
}

func (m BudgetingMethod) Label() string {
	if mi, ok := m.info(); ok {
		return mi.Label
	}
	return string(m)
}

// DefaultPercentages returns a copy of the method's template, or an empty
// map for methods without one.
func (m BudgetingMethod) DefaultPercentages() Percentages {
	if mi, ok := m.info(); ok && mi.Defaults != nil {
		return mi.Defaults.Clone()
	}
	return Percentages{}
}

// RequiresCustomPercentages is true for methods with no default template.
func (m BudgetingMethod) RequiresCustomPercentages() bool {
	mi, ok := m.info()
	return ok && len(mi.Defaults) == 0
}

// ParseBudgetingMethod accepts an identifier or a display label.
func ParseBudgetingMethod(s string) (BudgetingMethod, error) {
	s = strings.TrimSpace(s)
	for _, mi := range methodCatalog {
		if string(mi.Method) == s || mi.Label == s {
			return mi.Method, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}
