package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finplan/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// pathID parses the {name} path value as a UUID. Malformed IDs are reported
// as not found so callers cannot probe the ID space.
func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// RequestParser collects the first parse error across several fields so
// handlers can parse a whole request and check once.
type RequestParser struct {
	money *core.Formatter
	err   error
}

func newRequestParser(f *core.Formatter) *RequestParser {
	return &RequestParser{money: f}
}

func (p *RequestParser) Err() error { return p.err }

func (p *RequestParser) fail(field string, err error) {
	if p.err == nil {
		p.err = badInput(field, err)
	}
}

// Amount parses a locale formatted amount such as "€ 1.234,50".
func (p *RequestParser) Amount(field, s string) core.Money {
	m, err := p.money.Parse(s)
	if err != nil {
		p.fail(field, err)
	}
	return m
}

// OptionalAmount parses s when non-nil. Zero is allowed for balances.
func (p *RequestParser) OptionalAmount(field string, s *string) *core.Money {
	if s == nil {
		return nil
	}
	m := p.Balance(field, *s)
	return &m
}

// Balance parses an amount that may be zero or omitted.
func (p *RequestParser) Balance(field, s string) core.Money {
	if strings.Trim(strings.TrimSpace(s), "0.,") == "" {
		return core.Money{}
	}
	return p.Amount(field, s)
}

// Signed parses a balance that may be negative, e.g. a month where spending
// exceeded income.
func (p *RequestParser) Signed(field, s string) core.Money {
	t := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(t, "-"); ok {
		m := p.Balance(field, rest)
		return core.Money{Cents: -m.Cents}
	}
	return p.Balance(field, t)
}

func (p *RequestParser) Date(field, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		p.fail(field, err)
	}
	return d
}

func (p *RequestParser) OptionalDate(field string, s *string) *core.Date {
	if s == nil {
		return nil
	}
	d := p.Date(field, *s)
	return &d
}

func (p *RequestParser) Month(field, s string) core.Month {
	m, err := core.ParseMonth(s)
	if err != nil {
		p.fail(field, err)
	}
	return m
}

func (p *RequestParser) Method(field, s string) core.BudgetingMethod {
	m, err := core.ParseBudgetingMethod(s)
	if err != nil {
		p.fail(field, err)
	}
	return m
}

// Percentages parses bucket names to fractions, e.g. {"needs": "0.5"}.
func (p *RequestParser) Percentages(field string, in map[string]string) core.Percentages {
	if len(in) == 0 {
		return nil
	}
	out := make(core.Percentages, len(in))
	for k, v := range in {
		b, err := core.ParseBucket(k)
		if err != nil {
			p.fail(field, err)
			return nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			p.fail(field+"."+k, err)
			return nil
		}
		out[b] = d
	}
	return out
}

func (p *RequestParser) TransactionCategory(field, s string) core.TransactionCategory {
	c, err := core.ParseTransactionCategory(s)
	if err != nil {
		p.fail(field, err)
	}
	return c
}

func (p *RequestParser) BillCategory(field, s string) core.BillCategory {
	c, err := core.ParseBillCategory(s)
	if err != nil {
		p.fail(field, err)
	}
	return c
}

func (p *RequestParser) Recurrence(field, s string) core.Recurrence {
	rec, err := core.ParseRecurrence(s)
	if err != nil {
		p.fail(field, err)
	}
	return rec
}

func (p *RequestParser) Frequency(field, s string) core.Frequency {
	f, err := core.ParseFrequency(s)
	if err != nil {
		p.fail(field, err)
	}
	return f
}

// Timing defaults to the beginning of the month when s is empty.
func (p *RequestParser) Timing(field, s string) core.PaymentTiming {
	if strings.TrimSpace(s) == "" {
		return core.BeginningOfMonth
	}
	t, err := core.ParsePaymentTiming(s)
	if err != nil {
		p.fail(field, err)
	}
	return t
}

func (p *RequestParser) Context(field, s string) core.ClassificationContext {
	c, err := core.ParseClassificationContext(s)
	if err != nil {
		p.fail(field, err)
	}
	return c
}

func (p *RequestParser) ExpenseType(field, s string) core.ExpenseType {
	t, err := core.ParseExpenseType(s)
	if err != nil {
		p.fail(field, err)
	}
	return t
}
