package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"١٢", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneyDiv(t *testing.T) {
	tests := []struct {
		amount int64
		n      int64
		want   int64
	}{
		{8000, 2, 4000},
		{1000, 3, 333},
		{2000, 3, 667},
		{1, 2, 1}, // half away from zero
		{500, 0, 500},
	}
	for _, tt := range tests {
		if got := Cents(tt.amount).Div(tt.n); got.Cents != tt.want {
			t.Errorf("Cents(%d).Div(%d) = %d, want %d", tt.amount, tt.n, got.Cents, tt.want)
		}
	}
}

func TestMoneyMul(t *testing.T) {
	income := Cents(500000)
	if got := income.Mul(decimal.RequireFromString("0.3")); got.Cents != 150000 {
		t.Errorf("Mul(0.3) = %d, want 150000", got.Cents)
	}
	if got := Cents(333).Mul(decimal.RequireFromString("0.5")); got.Cents != 167 {
		t.Errorf("Mul(0.5) = %d, want 167", got.Cents)
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 1234, "b": "12,34", "c": "0.005"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1234 || v.B.Cents != 1234 || v.C.Cents != 1 {
		t.Errorf("got %d %d %d, want 1234 1234 1", v.A.Cents, v.B.Cents, v.C.Cents)
	}
	out, err := json.Marshal(Cents(-250))
	if err != nil || string(out) != "-250" {
		t.Errorf("Marshal = %s (%v), want -250", out, err)
	}
}

func TestMoneyString(t *testing.T) {
	if got := Cents(123456).String(); got != "1234.56" {
		t.Errorf("String() = %q, want %q", got, "1234.56")
	}
	if got := Cents(-5).String(); got != "-0.05" {
		t.Errorf("String() = %q, want %q", got, "-0.05")
	}
}
