package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.230", "1.23", true},
		{"1.005", "", false},
		{"0,001", "", false},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	total := Sum(MustMoney("0.1"), MustMoney("0.2"))
	if !total.Equal(MustMoney("0.3")) {
		t.Fatalf("0.1+0.2 = %s", total)
	}
	if got := MustMoney("33.33").Times(3); got.String() != "99.99" {
		t.Fatalf("times: %s", got)
	}
	neg := MustMoney("40").Sub(MustMoney("100"))
	if !neg.IsNegative() || neg.String() != "-60" {
		t.Fatalf("sub: %s", neg)
	}
	if !Sum().IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}

func TestMoneyDisplay(t *testing.T) {
	m := MustMoney("10.5")
	if m.String() != "10.5" {
		t.Fatalf("string: %s", m)
	}
	if m.Display() != "10.50" {
		t.Fatalf("display: %s", m.Display())
	}
	if m.Float64() != 10.5 {
		t.Fatalf("float: %v", m.Float64())
	}
}

func TestSubCentAmountsAreRejected(t *testing.T) {
	if _, err := ParseMoney("12,345"); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("parse: got %v", err)
	}

	var m Money
	if err := json.Unmarshal([]byte(`"0.005"`), &m); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); !errors.Is(err, ErrAmountPrecision) || !errors.Is(err, ErrValidation) {
		t.Fatalf("validate: got %v", err)
	}

	c := Contribution{Unit: 1, Amount: m, PaidDate: NewDate(2025, 1, 1)}
	if err := c.Validate(); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("contribution: got %v", err)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(MustMoney("12.50"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"12.5"` {
		t.Fatalf("got %s", b)
	}
	var m Money
	if err := json.Unmarshal([]byte(`"7.25"`), &m); err != nil {
		t.Fatal(err)
	}
	if !m.Equal(MustMoney("7.25")) {
		t.Fatalf("got %s", m)
	}
}

func TestMoneyScan(t *testing.T) {
	for _, src := range []any{"19.99", []byte("19.99")} {
		var m Money
		if err := m.Scan(src); err != nil {
			t.Fatalf("scan %T: %v", src, err)
		}
		if !m.Equal(MustMoney("19.99")) {
			t.Fatalf("scan %T: %s", src, m)
		}
	}
}
