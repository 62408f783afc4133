package core

import "testing"

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
		{" 2.50 ", 250, true},
		{"$4.20", 420, true},
		{"€ 3", 300, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "$0.00",
		5:     "$0.05",
		1234:  "$12.34",
		-250:  "-$2.50",
		10000: "$100.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: want %q, got %q", cents, want, got)
		}
	}
}

func TestSummarize(t *testing.T) {
	items := []Expense{
		{Date: NewDate(2025, 2, 1), Amount: Money{Cents: 500}, Category: "Food"},
		{Date: NewDate(2025, 2, 3), Amount: Money{Cents: 1500}, Category: "Rent"},
		{Date: NewDate(2025, 2, 9), Amount: Money{Cents: 700}, Category: "Food"},
		{Date: NewDate(2025, 3, 1), Amount: Money{Cents: 9900}, Category: "Food"},
	}
	s := Summarize(2025, 2, items)
	if s.Total.Cents != 2700 || s.Count != 3 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Rent" || s.ByCategory[1].Amount.Cents != 1200 {
		t.Fatalf("unexpected categories: %+v", s.ByCategory)
	}
}
