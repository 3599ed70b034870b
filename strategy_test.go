package backtest

import (
	"errors"
	"testing"

	"github.com/etnz/backtest/date"
	"github.com/google/go-cmp/cmp"
)

// trendTable has an asset going up, one going down and one flat, plus the
// residual column.
func trendTable(t *testing.T, n int) *Table {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{0.01, -0.01, 0, 0.0001}
	}
	return mustTable(t, "2024-01-01", []string{"UP", "DOWN", "FLAT", "RF"}, rows...)
}

func TestBuildSchedule_TrailingReturn(t *testing.T) {
	returns := trendTable(t, 20)
	strategy := TrailingReturn{Lookback: 30, Builder: WeightBuilder{Leverage: 1, MaxShortWeight: 0.5}}
	s, err := BuildSchedule(returns, Dynamic, mustDates("2024-01-11", "2024-01-16"), strategy)
	if err != nil {
		t.Fatalf("BuildSchedule() unexpected error: %v", err)
	}
	// FLAT is the median, it is not above it.
	want := []float64{1.5, -0.25, -0.25, 0}
	for _, r := range s.Rebalances {
		if diff := cmp.Diff(want, r.Weights, approx); diff != "" {
			t.Errorf("weights on %s mismatch (-want +got):\n%s", r.On, diff)
		}
	}
}

func TestBuildSchedule_MovingAverageCrossover(t *testing.T) {
	returns := trendTable(t, 20)
	strategy := MovingAverageCrossover{Fast: 2, Slow: 4, Weighting: RankedWeighting, Builder: WeightBuilder{Leverage: 1}}
	s, err := BuildSchedule(returns, Dynamic, mustDates("2024-01-11"), strategy)
	if err != nil {
		t.Fatalf("BuildSchedule() unexpected error: %v", err)
	}
	w := s.Rebalances[0].Weights
	if !(w[0] > 0 && w[1] < 0) {
		t.Errorf("weights = %v, want UP long and DOWN short", w)
	}

	_, err = BuildSchedule(returns, Dynamic, mustDates("2024-01-03"), strategy)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("BuildSchedule() with too little history: error = %v, want a ConfigurationError", err)
	}
}

func TestBuildSchedule_SeesOnlyThePast(t *testing.T) {
	returns := trendTable(t, 10)
	var seen []int
	spy := StrategyFunc(func(on date.Date, past *Table) ([]float64, error) {
		seen = append(seen, past.Len())
		if past.Width() != 3 {
			t.Errorf("strategy sees %d columns, want the 3 assets", past.Width())
		}
		if past.Len() > 0 && !past.Dates[past.Len()-1].Before(on) {
			t.Errorf("strategy sees %s on %s", past.Dates[past.Len()-1], on)
		}
		return []float64{1, 0, 0, 0}, nil
	})
	if _, err := BuildSchedule(returns, Dynamic, mustDates("2024-01-01", "2024-01-05"), spy); err != nil {
		t.Fatalf("BuildSchedule() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{0, 4}, seen); diff != "" {
		t.Errorf("history lengths mismatch (-want +got):\n%s", diff)
	}
}

func TestExplicit(t *testing.T) {
	on := date.MustParse("2024-01-01")
	s := Explicit(map[date.Date][]float64{on: {0.5, 0.5}})
	got, err := s.Weights(on, nil)
	if err != nil {
		t.Fatalf("Weights() unexpected error: %v", err)
	}
	got[0] = 99
	again, _ := s.Weights(on, nil)
	if again[0] != 0.5 {
		t.Error("Explicit() shares memory with its caller")
	}
	if _, err := s.Weights(on.Add(1), nil); err == nil {
		t.Error("Weights() on a missing date: want an error")
	}
}

func TestParseWeighting(t *testing.T) {
	for in, want := range map[string]Weighting{"": EqualWeighting, "ranked": RankedWeighting, "vol-target": VolTargetWeighting} {
		if got, err := ParseWeighting(in); err != nil || got != want {
			t.Errorf("ParseWeighting(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseWeighting("kelly"); err == nil {
		t.Error("ParseWeighting(kelly): want an error")
	}
}
