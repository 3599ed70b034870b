package backtest

import (
	"testing"

	"github.com/etnz/backtest/date"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// approx compares floats computed through different but equivalent paths.
var approx = cmpopts.EquateApprox(0, 1e-9)

// days returns n consecutive days starting on from.
func days(from string, n int) []date.Date {
	start := date.MustParse(from)
	dates := make([]date.Date, n)
	for i := range dates {
		dates[i] = start.Add(i)
	}
	return dates
}

// mustTable builds a table on consecutive days starting on from.
func mustTable(t *testing.T, from string, columns []string, rows ...[]float64) *Table {
	t.Helper()
	tb := &Table{Dates: days(from, len(rows)), Columns: columns, Rows: rows}
	if err := tb.Validate(); err != nil {
		t.Fatalf("invalid test table: %v", err)
	}
	return tb
}

// mustSchedule builds a schedule or fails the test.
func mustSchedule(t *testing.T, freq Frequency, rebalances ...Rebalance) *Schedule {
	t.Helper()
	s, err := NewSchedule(freq, rebalances)
	if err != nil {
		t.Fatalf("NewSchedule() unexpected error: %v", err)
	}
	return s
}
