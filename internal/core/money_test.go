package core

import "testing"

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{1299, "12.99"},
		{8990, "89.90"},
		{5, "0.05"},
		{100, "1.00"},
		{85000, "850.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.out {
			t.Fatalf("%d expected %q, got %q", tc.cents, tc.out, got)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		part, total int64
		out         float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{50, 100, 50},
		{0, 100, 0},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.part, tc.total); got != tc.out {
			t.Fatalf("Percentage(%d, %d) expected %v, got %v", tc.part, tc.total, tc.out, got)
		}
	}
}
