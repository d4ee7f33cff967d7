package core

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders and parses amounts for a locale and currency.
type Formatter struct {
	tag     language.Tag
	unit    currency.Unit
	printer *message.Printer
	symbol  string
	group   string
	decimal string
}

// NewFormatter builds a Formatter for a BCP 47 locale (e.g. "it-IT") and an
// ISO 4217 code. An empty code uses the locale's currency.
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	var unit currency.Unit
	if code == "" {
		var conf language.Confidence
		if unit, conf = currency.FromTag(tag); conf == language.No {
			return nil, fmt.Errorf("no currency for locale %q", locale)
		}
	} else if unit, err = currency.ParseISO(code); err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}

	f := &Formatter{
		tag:     tag,
		unit:    unit,
		printer: message.NewPrinter(tag),
		symbol:  fmt.Sprintf("%s", currency.Symbol(unit)),
	}
	f.group, f.decimal = f.separators()
	return f, nil
}

// MustFormatter is NewFormatter that panics on error. Intended for package
// level defaults.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Formatter) separators() (group, dec string) {
	sample := f.printer.Sprint(number.Decimal(1234.5, number.Scale(2)))
	var seps []string
	for _, r := range sample {
		if !unicode.IsDigit(r) {
			seps = append(seps, string(r))
		}
	}
	switch len(seps) {
	case 0:
		return "", "."
	case 1:
		return "", seps[0]
	default:
		return seps[0], seps[len(seps)-1]
	}
}

// Symbol returns the currency symbol, e.g. "€".
func (f *Formatter) Symbol() string { return f.symbol }

// Currency returns the ISO code.
func (f *Formatter) Currency() string { return f.unit.String() }

// Format renders m with the locale's separators, e.g. "€ 1.234,50".
func (f *Formatter) Format(m Money) string {
	n := f.printer.Sprint(number.Decimal(m.Abs().Float64(), number.Scale(2)))
	if m.IsNegative() {
		return "-" + f.symbol + " " + n
	}
	return f.symbol + " " + n
}

// Parse reads a user-entered amount, tolerating the currency symbol, the ISO
// code and the locale's grouping separator. Both "." and "," are accepted as
// the decimal separator when unambiguous.
func (f *Formatter) Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, f.symbol, "")
	s = strings.ReplaceAll(s, f.unit.String(), "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if f.group != "" && strings.Contains(s, f.group) && isGrouped(s, f.group, f.decimal) {
		s = strings.ReplaceAll(s, f.group, "")
	}
	if f.decimal != "." {
		s = strings.ReplaceAll(s, f.decimal, ".")
	}
	return ParseMoney(s)
}

// isGrouped reports whether sep is used as a thousands separator in s: either
// the decimal separator also appears, or every group after the first has
// exactly three digits.
func isGrouped(s, sep, dec string) bool {
	if strings.Contains(s, dec) && dec != sep {
		return true
	}
	parts := strings.Split(s, sep)
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
