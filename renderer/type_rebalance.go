package renderer

import (
	"os"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Now is the current time used in reports.
// BT_TESTING_NOW overrides it to get stable outputs in tests.
func Now() time.Time {
	if os.Getenv("BT_TESTING_NOW") != "" {
		t, err := time.Parse("2006-01-02 15:04:05", os.Getenv("BT_TESTING_NOW"))
		if err != nil {
			panic(err)
		}
		return t
	}
	return time.Now()
}

// RebalanceReport is the data of a rebalancing backtest report.
type RebalanceReport struct {
	Name         string
	AsOf         string
	Range        date.Range
	Frequency    string
	Slippage     backtest.Percent
	Rebalances   int
	Growth       backtest.Percent // cumulative return over the range
	HasBenchmark bool
	Benchmark    backtest.Percent // cumulative benchmark return
	Timeframes   []backtest.Timeframe
	// Weights is the drifted allocation at the close of the last day.
	Weights []Allocation
}

// Allocation is the weight of one column.
type Allocation struct {
	Column string
	Weight backtest.Percent
}

// NewRebalanceReport summarizes a rebalancing result. columns names the
// weight slots, the residual last.
func NewRebalanceReport(name string, schedule *backtest.Schedule, slippage float64, columns []string, res *backtest.RebalanceResult) *RebalanceReport {
	r := &RebalanceReport{
		Name:         name,
		AsOf:         Now().Format("2006-01-02 15:04:05"),
		Frequency:    schedule.Frequency.String(),
		Slippage:     backtest.Pct(slippage),
		Rebalances:   len(res.Rebalances),
		HasBenchmark: res.Benchmark != nil,
		Timeframes:   backtest.Summarize(res.Portfolio, res.Benchmark, res.RiskFree, 0),
	}
	if res.Len() == 0 {
		return r
	}
	r.Range = date.NewRange(res.Dates[0], res.Dates[res.Len()-1])
	r.Growth = growth(res.Portfolio)
	if r.HasBenchmark {
		r.Benchmark = growth(res.Benchmark)
	}
	last := res.Weights[res.Len()-1]
	for j, col := range columns {
		if j < len(last) {
			r.Weights = append(r.Weights, Allocation{Column: col, Weight: backtest.Pct(last[j])})
		}
	}
	return r
}

// growth is the total compounded return of a series.
func growth(returns []float64) backtest.Percent {
	cum := backtest.CumulativeReturns(returns)
	if len(cum) == 0 {
		return 0
	}
	return backtest.Pct(cum[len(cum)-1] - 1)
}
