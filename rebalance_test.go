package backtest

import (
	"errors"
	"math"
	"testing"

	"github.com/etnz/backtest/date"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDriftStep(t *testing.T) {
	weights := []float64{0.6, 0.4}
	realized, drifted, err := driftStep(weights, []float64{0.1, -0.05})
	if err != nil {
		t.Fatalf("driftStep() unexpected error: %v", err)
	}
	if math.Abs(realized-0.04) > 1e-12 {
		t.Errorf("realized = %v, want 0.04", realized)
	}
	want := []float64{0.6346, 0.3654}
	if diff := cmp.Diff(want, drifted, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("drifted weights mismatch (-want +got):\n%s", diff)
	}
	if !cmp.Equal([]float64{0.6, 0.4}, weights) {
		t.Errorf("driftStep() modified its input: %v", weights)
	}
}

func TestDriftStepDegenerate(t *testing.T) {
	if _, _, err := driftStep([]float64{1, 0}, []float64{-1, 0}); err == nil {
		t.Error("driftStep() on a wiped out portfolio: want an error")
	}
}

func TestSimulateRebalancing(t *testing.T) {
	assets := mustTable(t, "2024-01-01", []string{"A", "B", "RF"},
		[]float64{0.1, -0.05, 0},
		[]float64{0, 0.1, 0},
		[]float64{0.02, 0.02, 0},
		[]float64{0.01, 0, 0},
	)
	schedule := mustSchedule(t, Dynamic,
		Rebalance{On: date.MustParse("2024-01-01"), Weights: []float64{0.6, 0.4, 0}},
		Rebalance{On: date.MustParse("2024-01-03"), Weights: []float64{0.5, 0.5, 0}},
	)
	res, err := SimulateRebalancing(schedule, assets, nil, RebalanceOptions{Slippage: 0.001})
	if err != nil {
		t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
	}

	wantPortfolio := []float64{
		0.04 - 0.001,
		0.38 / 1.04 * 0.1, // B has drifted, no slippage
		0.02 - 0.001,
		0.005,
	}
	if diff := cmp.Diff(wantPortfolio, res.Portfolio, approx); diff != "" {
		t.Errorf("portfolio returns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 2}, res.Rebalances); diff != "" {
		t.Errorf("rebalances mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(assets.Dates, res.Dates); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
	if res.Benchmark != nil {
		t.Errorf("benchmark = %v, want nil without benchmark table", res.Benchmark)
	}
	if diff := cmp.Diff(assets.Series(2), res.RiskFree); diff != "" {
		t.Errorf("risk-free mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulateRebalancingWeightsSumToOne(t *testing.T) {
	assets := mustTable(t, "2024-01-01", []string{"A", "B", "C", "RF"},
		[]float64{0.03, -0.02, 0.01, 0.0001},
		[]float64{-0.04, 0.05, 0.02, 0.0001},
		[]float64{0.01, 0.01, -0.03, 0.0001},
		[]float64{0.2, -0.1, 0, 0.0001},
		[]float64{-0.15, 0.07, 0.04, 0.0001},
	)
	schedule := mustSchedule(t, Dynamic,
		Rebalance{On: date.MustParse("2024-01-01"), Weights: []float64{1.2, -0.4, 0.3, -0.1}},
		Rebalance{On: date.MustParse("2024-01-04"), Weights: []float64{0.25, 0.25, 0.25, 0.25}},
	)
	res, err := SimulateRebalancing(schedule, assets, nil, RebalanceOptions{})
	if err != nil {
		t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
	}
	for i, w := range res.Weights {
		var sum float64
		for _, x := range w {
			sum += x
		}
		if math.Abs(sum-1) > WeightTolerance {
			t.Errorf("weights on %s sum to %v, want 1", res.Dates[i], sum)
		}
	}
}

func TestSimulateRebalancingMonthlyBoundaries(t *testing.T) {
	// From Jan 30 to Mar 2: interval 0 stops at the end of January.
	assets := &Table{Columns: []string{"A", "RF"}}
	for on := range date.NewRange(date.MustParse("2024-01-30"), date.MustParse("2024-03-02")).Days() {
		assets.Dates = append(assets.Dates, on)
		assets.Rows = append(assets.Rows, []float64{0.01, 0})
	}
	schedule := mustSchedule(t, Monthly,
		Rebalance{On: date.MustParse("2024-01-01"), Weights: []float64{1, 0}},
		Rebalance{On: date.MustParse("2024-03-01"), Weights: []float64{1, 0}},
	)
	res, err := SimulateRebalancing(schedule, assets, nil, RebalanceOptions{})
	if err != nil {
		t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
	}
	want := []date.Date{
		date.MustParse("2024-01-30"),
		date.MustParse("2024-01-31"),
		date.MustParse("2024-03-01"),
		date.MustParse("2024-03-02"),
	}
	if diff := cmp.Diff(want, res.Dates); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulateRebalancingBenchmark(t *testing.T) {
	assets := mustTable(t, "2024-01-01", []string{"A", "RF"},
		[]float64{0.01, 0},
		[]float64{0.02, 0},
		[]float64{-0.01, 0},
	)
	bench := mustTable(t, "2024-01-01", []string{"X", "Y"},
		[]float64{0.02, 0.04},
		[]float64{-0.02, 0},
		[]float64{0, 0.01},
	)
	schedule := mustSchedule(t, Dynamic, Rebalance{On: date.MustParse("2024-01-01"), Weights: []float64{1, 0}})

	t.Run("static", func(t *testing.T) {
		res, err := SimulateRebalancing(schedule, assets, bench, RebalanceOptions{BenchmarkWeights: []float64{0.5, 0.5}})
		if err != nil {
			t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
		}
		want := []float64{0.03, -0.01, 0.005}
		if diff := cmp.Diff(want, res.Benchmark, approx); diff != "" {
			t.Errorf("benchmark mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("drifting", func(t *testing.T) {
		bs := mustSchedule(t, Dynamic, Rebalance{On: date.MustParse("2024-01-01"), Weights: []float64{0.5, 0.5}})
		res, err := SimulateRebalancing(schedule, assets, bench, RebalanceOptions{BenchmarkSchedule: bs})
		if err != nil {
			t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
		}
		// After day 0 weights are 0.51/1.03 and 0.52/1.03.
		want := []float64{0.03, 0.51 / 1.03 * -0.02}
		if diff := cmp.Diff(want, res.Benchmark[:2], approx); diff != "" {
			t.Errorf("benchmark mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("weights mismatch", func(t *testing.T) {
		_, err := SimulateRebalancing(schedule, assets, bench, RebalanceOptions{BenchmarkWeights: []float64{1}})
		var lm *LengthMismatchError
		if !errors.As(err, &lm) {
			t.Errorf("SimulateRebalancing() error = %v, want a LengthMismatchError", err)
		}
	})
}

func TestSimulateRebalancingErrors(t *testing.T) {
	assets := mustTable(t, "2024-01-01", []string{"A", "B", "RF"},
		[]float64{0.1, -0.05, 0},
		[]float64{-1, -1, 0},
	)
	on := date.MustParse("2024-01-01")
	testCases := []struct {
		name     string
		schedule *Schedule
		opts     RebalanceOptions
		check    func(error) bool
	}{
		{
			name:     "width mismatch",
			schedule: &Schedule{Frequency: Dynamic, Rebalances: []Rebalance{{On: on, Weights: []float64{1, 0}}}},
			check:    func(err error) bool { var e *LengthMismatchError; return errors.As(err, &e) },
		},
		{
			name:     "negative slippage",
			schedule: &Schedule{Frequency: Dynamic, Rebalances: []Rebalance{{On: on, Weights: []float64{0.5, 0.5, 0}}}},
			opts:     RebalanceOptions{Slippage: -0.001},
			check:    func(err error) bool { var e *ConfigurationError; return errors.As(err, &e) },
		},
		{
			name:     "long exposure above leverage",
			schedule: &Schedule{Frequency: Dynamic, Rebalances: []Rebalance{{On: on, Weights: []float64{1.5, -0.5, 0}}}},
			opts:     RebalanceOptions{Leverage: 1},
			check:    func(err error) bool { var e *ConfigurationError; return errors.As(err, &e) },
		},
		{
			name:     "no returns in interval",
			schedule: &Schedule{Frequency: Dynamic, Rebalances: []Rebalance{{On: date.MustParse("2024-02-01"), Weights: []float64{0.5, 0.5, 0}}}},
			check:    func(err error) bool { var e *ConfigurationError; return errors.As(err, &e) },
		},
		{
			name:     "portfolio wiped out",
			schedule: &Schedule{Frequency: Dynamic, Rebalances: []Rebalance{{On: on, Weights: []float64{0.5, 0.5, 0}}}},
			check:    func(err error) bool { var e *DegenerateStateError; return errors.As(err, &e) },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SimulateRebalancing(tc.schedule, assets, nil, tc.opts)
			if err == nil || !tc.check(err) {
				t.Errorf("SimulateRebalancing() error = %v", err)
			}
		})
	}
}

func TestSimulateRebalancingMidMonthDates(t *testing.T) {
	rows := make([][]float64, 37) // 2024-01-15 to 2024-02-20
	for i := range rows {
		rows[i] = []float64{0.001, 0}
	}
	assets := mustTable(t, "2024-01-15", []string{"A", "RF"}, rows...)
	rebalances := []Rebalance{
		{On: date.MustParse("2024-01-15"), Weights: []float64{1, 0}},
		{On: date.MustParse("2024-02-15"), Weights: []float64{1, 0}},
	}
	if _, err := NewSchedule(Monthly, rebalances); err == nil {
		t.Fatal("NewSchedule(Monthly) accepted mid-month rebalances")
	}

	res, err := SimulateRebalancing(mustSchedule(t, Dynamic, rebalances...), assets, nil, RebalanceOptions{})
	if err != nil {
		t.Fatalf("SimulateRebalancing() unexpected error: %v", err)
	}
	if diff := cmp.Diff(assets.Dates, res.Dates); diff != "" {
		t.Errorf("days dropped from the series (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 31}, res.Rebalances); diff != "" {
		t.Errorf("rebalance days mismatch (-want +got):\n%s", diff)
	}
}
