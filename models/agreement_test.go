package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSplitInstallments(t *testing.T) {
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		total     string
		n         int
		frequency int
		wantFirst string
		wantLast  string
	}{
		{name: "even split", total: "300", n: 3, frequency: 30, wantFirst: "100", wantLast: "100"},
		{name: "last absorbs rounding", total: "100", n: 3, frequency: 15, wantFirst: "33.33", wantLast: "33.34"},
		{name: "single installment", total: "57.89", n: 1, frequency: 30, wantFirst: "57.89", wantLast: "57.89"},
		{name: "default frequency", total: "10", n: 4, frequency: 0, wantFirst: "2.5", wantLast: "2.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.RequireFromString(tc.total)
			got := SplitInstallments(total, tc.n, first, tc.frequency)
			if len(got) != tc.n {
				t.Fatalf("len=%d want %d", len(got), tc.n)
			}
			sum := decimal.Zero
			for i, d := range got {
				sum = sum.Add(d.Amount)
				if d.Number != i+1 {
					t.Fatalf("installment %d numbered %d", i, d.Number)
				}
			}
			if !sum.Equal(total) {
				t.Fatalf("sum=%s want %s", sum, total)
			}
			if !got[0].Amount.Equal(decimal.RequireFromString(tc.wantFirst)) {
				t.Fatalf("first=%s want %s", got[0].Amount, tc.wantFirst)
			}
			if !got[tc.n-1].Amount.Equal(decimal.RequireFromString(tc.wantLast)) {
				t.Fatalf("last=%s want %s", got[tc.n-1].Amount, tc.wantLast)
			}
			if !got[0].DueDate.Equal(first) {
				t.Fatalf("first due=%s want %s", got[0].DueDate, first)
			}
		})
	}
}

func TestSplitInstallmentsDueDates(t *testing.T) {
	first := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got := SplitInstallments(decimal.NewFromInt(90), 3, first, 10)
	want := []time.Time{
		first,
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	}
	for i := range want {
		if !got[i].DueDate.Equal(want[i]) {
			t.Fatalf("due[%d]=%s want %s", i, got[i].DueDate, want[i])
		}
	}
	if SplitInstallments(decimal.NewFromInt(1), 0, first, 10) != nil {
		t.Fatalf("expected nil for zero installments")
	}
}
