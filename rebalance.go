package backtest

import (
	"fmt"
	"math"

	"github.com/etnz/backtest/date"
	"github.com/rs/zerolog"
)

// degenerateEpsilon is the smallest portfolio value a drift can be renormalized by.
const degenerateEpsilon = 1e-12

// RebalanceOptions holds the scalar parameters of a rebalancing simulation.
type RebalanceOptions struct {
	// BenchmarkWeights are the static buy-and-hold weights of the benchmark
	// columns. Ignored when BenchmarkSchedule is set.
	BenchmarkWeights []float64
	// BenchmarkSchedule rebalances the benchmark with drift, like the portfolio.
	BenchmarkSchedule *Schedule

	// Slippage is the cost of one rebalance, in return units (0.001 = 10bp).
	Slippage float64

	// Leverage and MaxShortWeight bound the exposure of target weights, see
	// WeightBuilder. Bounds are not checked when Leverage is 0.
	Leverage       float64
	MaxShortWeight float64

	Logger zerolog.Logger
}

// RebalanceResult is the realized daily return of a rebalanced portfolio and
// of its benchmark, on the same dates.
type RebalanceResult struct {
	Dates     []date.Date
	Portfolio []float64
	Benchmark []float64
	// RiskFree is the residual column of the assets on Dates.
	RiskFree []float64
	// Weights[i] is the drifted weight vector at the close of Dates[i].
	Weights [][]float64
	// Rebalances holds the index in Dates of every rebalance day.
	Rebalances []int
}

// Len returns the number of simulated days.
func (r *RebalanceResult) Len() int { return len(r.Dates) }

// SimulateRebalancing runs the weight-drift recurrence of schedule over the
// asset returns.
//
// Between two rebalances weights are never reset: each day the realized
// return is the dot product of the current weights and the day returns, then
// the weights drift with the assets and are renormalized to sum to one. The
// slippage is charged once, on the rebalance day.
//
// The last column of assets is the residual (risk-free) return.
func SimulateRebalancing(schedule *Schedule, assets, benchmark *Table, opts RebalanceOptions) (*RebalanceResult, error) {
	if err := opts.validate(schedule, assets); err != nil {
		return nil, err
	}
	log := opts.Logger.With().Str("sim", "rebalance").Logger()

	dates, portfolio, weights, starts, err := driftFold(schedule, assets, opts.Slippage, log)
	if err != nil {
		return nil, err
	}
	res := &RebalanceResult{
		Dates:      dates,
		Portfolio:  portfolio,
		RiskFree:   make([]float64, len(dates)),
		Weights:    weights,
		Rebalances: starts,
	}
	rf := assets.Width() - 1
	for i, on := range dates {
		k, _ := assets.Index(on)
		res.RiskFree[i] = assets.Rows[k][rf]
	}

	if opts.BenchmarkSchedule != nil {
		res.Benchmark, err = driftBenchmark(opts.BenchmarkSchedule, benchmark, dates, log)
	} else {
		res.Benchmark, err = staticBenchmark(opts.BenchmarkWeights, benchmark, dates)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int("days", len(dates)).Int("rebalances", len(starts)).Msg("simulation done")
	return res, nil
}

func (o RebalanceOptions) validate(schedule *Schedule, assets *Table) error {
	if schedule == nil || schedule.Len() == 0 {
		return configErrorf("schedule", "no rebalance date")
	}
	if err := assets.Validate(); err != nil {
		return fmt.Errorf("asset returns: %w", err)
	}
	if assets.Len() == 0 {
		return configErrorf("asset returns", "no returns")
	}
	if schedule.Width() != assets.Width() {
		return &LengthMismatchError{What: "weights vs asset columns", Want: assets.Width(), Got: schedule.Width()}
	}
	if o.Slippage < 0 || math.IsNaN(o.Slippage) {
		return configErrorf("slippage", "must be a non negative cost, got %v", o.Slippage)
	}
	if o.Leverage < 0 || o.MaxShortWeight < 0 {
		return configErrorf("leverage", "leverage and max short weight must be non negative")
	}
	if o.Leverage == 0 {
		return nil
	}
	for _, r := range schedule.Rebalances {
		var long, short float64
		for _, w := range r.Weights[:len(r.Weights)-1] {
			if w > 0 {
				long += w
			} else {
				short -= w
			}
		}
		if long > o.Leverage+o.MaxShortWeight+WeightTolerance {
			return configErrorf(fmt.Sprintf("schedule[%s]", r.On), "long exposure %v exceeds %v", long, o.Leverage+o.MaxShortWeight)
		}
		if short > o.MaxShortWeight+WeightTolerance {
			return configErrorf(fmt.Sprintf("schedule[%s]", r.On), "short exposure %v exceeds %v", short, o.MaxShortWeight)
		}
	}
	return nil
}

// driftFold is the rebalancing recurrence over every interval of schedule.
func driftFold(schedule *Schedule, returns *Table, slippage float64, log zerolog.Logger) (dates []date.Date, realized []float64, weights [][]float64, starts []int, err error) {
	last := returns.Dates[returns.Len()-1]
	for i, rb := range schedule.Rebalances {
		end := schedule.end(i, last)
		from, to := returns.Search(rb.On), returns.Search(end.Add(1))
		if from >= to {
			return nil, nil, nil, nil, configErrorf(fmt.Sprintf("schedule[%s]", rb.On), "no returns between %s and %s", rb.On, end)
		}
		log.Debug().Stringer("on", rb.On).Stringer("end", end).Int("days", to-from).Msg("rebalance")

		starts = append(starts, len(dates))
		current := rb.Weights
		for k := from; k < to; k++ {
			var r float64
			r, current, err = driftStep(current, returns.Rows[k])
			if err != nil {
				return nil, nil, nil, nil, &DegenerateStateError{On: returns.Dates[k], Reason: err.Error()}
			}
			if k == from {
				r -= slippage
			}
			dates = append(dates, returns.Dates[k])
			realized = append(realized, r)
			weights = append(weights, current)
		}
	}
	return dates, realized, weights, starts, nil
}

// driftStep returns the realized return of weights over one day and the
// weights drifted by that day's returns, renormalized to sum to one.
//
// weights is never modified.
func driftStep(weights, returns []float64) (realized float64, drifted []float64, err error) {
	drifted = make([]float64, len(weights))
	var total float64
	for j, w := range weights {
		realized += w * returns[j]
		drifted[j] = w * (1 + returns[j])
		total += drifted[j]
	}
	if math.Abs(total) < degenerateEpsilon || math.IsNaN(total) || math.IsInf(total, 0) {
		return realized, nil, fmt.Errorf("portfolio value %v cannot be renormalized", total)
	}
	for j := range drifted {
		drifted[j] /= total
	}
	return realized, drifted, nil
}

// staticBenchmark returns the buy-and-hold benchmark return on each date.
func staticBenchmark(weights []float64, benchmark *Table, dates []date.Date) ([]float64, error) {
	if benchmark == nil {
		return nil, nil
	}
	if len(weights) != benchmark.Width() {
		return nil, &LengthMismatchError{What: "benchmark weights vs columns", Want: benchmark.Width(), Got: len(weights)}
	}
	series := make([]float64, len(dates))
	for i, on := range dates {
		k, ok := benchmark.Index(on)
		if !ok {
			return nil, fmt.Errorf("benchmark has no row on %s: %w", on,
				&LengthMismatchError{What: "benchmark dates", Want: len(dates), Got: benchmark.Len()})
		}
		series[i] = dot(weights, benchmark.Rows[k])
	}
	return series, nil
}

// driftBenchmark runs the drift recurrence on the benchmark and aligns it on dates.
func driftBenchmark(schedule *Schedule, benchmark *Table, dates []date.Date, log zerolog.Logger) ([]float64, error) {
	if benchmark == nil {
		return nil, configErrorf("benchmark", "a benchmark schedule needs benchmark returns")
	}
	if schedule.Width() != benchmark.Width() {
		return nil, &LengthMismatchError{What: "benchmark weights vs columns", Want: benchmark.Width(), Got: schedule.Width()}
	}
	bdates, realized, _, _, err := driftFold(schedule, benchmark, 0, log.With().Str("leg", "benchmark").Logger())
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}
	byDate := make(map[date.Date]float64, len(bdates))
	for i, on := range bdates {
		byDate[on] = realized[i]
	}
	series := make([]float64, len(dates))
	for i, on := range dates {
		r, ok := byDate[on]
		if !ok {
			return nil, fmt.Errorf("benchmark has no return on %s: %w", on,
				&LengthMismatchError{What: "benchmark dates", Want: len(dates), Got: len(bdates)})
		}
		series[i] = r
	}
	return series, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
