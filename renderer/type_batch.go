package renderer

import (
	"math"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// BatchReport compares several rebalancing backtests.
type BatchReport struct {
	AsOf string
	Runs []BatchLine
}

// BatchLine is the inception performance of one run.
type BatchLine struct {
	Name       string
	Range      date.Range
	Rebalances int
	Growth     backtest.Percent
	Benchmark  backtest.Percent // n/a without benchmark
	Inception  backtest.Performance
}

// NewBatchReport summarizes the reports of a batch, in order.
func NewBatchReport(reports []*RebalanceReport) *BatchReport {
	b := &BatchReport{AsOf: Now().Format("2006-01-02 15:04:05")}
	for _, r := range reports {
		line := BatchLine{
			Name:       r.Name,
			Range:      r.Range,
			Rebalances: r.Rebalances,
			Growth:     r.Growth,
			Benchmark:  r.Benchmark,
		}
		if !r.HasBenchmark {
			line.Benchmark = backtest.Percent(math.NaN())
		}
		// Inception is always the last timeframe.
		if n := len(r.Timeframes); n > 0 {
			line.Inception = r.Timeframes[n-1].Portfolio
		}
		b.Runs = append(b.Runs, line)
	}
	return b
}
