package backtest

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/etnz/backtest/date"
)

// Strategy decides the target weights of a rebalance.
//
// past holds the asset returns strictly before 'on' (the residual column
// excluded). The returned weights must include the residual slot.
type Strategy interface {
	Weights(on date.Date, past *Table) ([]float64, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(on date.Date, past *Table) ([]float64, error)

func (f StrategyFunc) Weights(on date.Date, past *Table) ([]float64, error) { return f(on, past) }

// Weighting selects how a strategy converts its signal into weights.
type Weighting int

const (
	EqualWeighting Weighting = iota
	RankedWeighting
	VolTargetWeighting
)

func (w Weighting) String() string {
	switch w {
	case EqualWeighting:
		return "equal"
	case RankedWeighting:
		return "ranked"
	case VolTargetWeighting:
		return "vol-target"
	default:
		return fmt.Sprintf("weighting(%d)", int(w))
	}
}

// ParseWeighting parses a weighting name.
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "":
		return EqualWeighting, nil
	case "ranked", "rank":
		return RankedWeighting, nil
	case "vol-target", "vol_target", "voltarget":
		return VolTargetWeighting, nil
	default:
		return EqualWeighting, configErrorf("weighting", "unsupported weighting %q", s)
	}
}

// Static returns the same weights at every rebalance.
func Static(weights []float64) Strategy {
	return StrategyFunc(func(date.Date, *Table) ([]float64, error) {
		return slices.Clone(weights), nil
	})
}

// Explicit returns the weights registered for each rebalance date.
func Explicit(weights map[date.Date][]float64) Strategy {
	return StrategyFunc(func(on date.Date, _ *Table) ([]float64, error) {
		w, ok := weights[on]
		if !ok {
			return nil, configErrorf("weights", "no weights for rebalance on %s", on)
		}
		return slices.Clone(w), nil
	})
}

// TrailingReturn goes long the assets whose compounded return over the last
// 'lookback' calendar days is above the median, and short the others.
type TrailingReturn struct {
	Lookback  int // calendar days
	Weighting Weighting
	VolTarget float64 // annualized volatility target, for VolTargetWeighting
	Builder   WeightBuilder
}

func (s TrailingReturn) Weights(on date.Date, past *Table) ([]float64, error) {
	rows := window(past, on.Add(-s.Lookback))
	if len(rows) == 0 {
		return nil, configErrorf("lookback", "no returns in the %d days before %s", s.Lookback, on)
	}
	period := make([]float64, past.Width())
	for j := range period {
		growth := 1.0
		for _, row := range rows {
			growth *= 1 + row[j]
		}
		period[j] = growth - 1
	}
	signs := aboveMedian(period)
	switch s.Weighting {
	case RankedWeighting:
		median := medianOf(period)
		scores := make([]float64, len(period))
		for j, p := range period {
			scores[j] = p - median
		}
		return s.Builder.Ranked(scores)
	case VolTargetWeighting:
		return s.Builder.VolTarget(annualizedVols(rows, past.Width()), signs, s.VolTarget)
	default:
		return s.Builder.Equal(signs)
	}
}

// MovingAverageCrossover goes long the assets whose fast moving average of
// the price index is above the slow one, and short the others.
//
// The price index is compounded from returns over the 2*max(Fast, Slow)
// calendar days before the rebalance.
type MovingAverageCrossover struct {
	Fast, Slow int // in rows (trading days)
	Weighting  Weighting
	VolTarget  float64
	Builder    WeightBuilder
}

func (s MovingAverageCrossover) Weights(on date.Date, past *Table) ([]float64, error) {
	longest := max(s.Fast, s.Slow)
	if s.Fast <= 0 || s.Slow <= 0 {
		return nil, configErrorf("moving average", "windows must be positive, got %d and %d", s.Fast, s.Slow)
	}
	rows := window(past, on.Add(-2*longest))
	if len(rows) < longest {
		return nil, configErrorf("moving average", "%d rows before %s, need %d", len(rows), on, longest)
	}
	signs := make([]float64, past.Width())
	scores := make([]float64, past.Width())
	for j := range signs {
		index := make([]float64, len(rows))
		level := 1.0
		for i, row := range rows {
			level *= 1 + row[j]
			index[i] = level
		}
		fast, slow := mean(index[len(index)-s.Fast:]), mean(index[len(index)-s.Slow:])
		scores[j] = fast - slow
		signs[j] = -1
		if fast >= slow {
			signs[j] = 1
		}
	}
	switch s.Weighting {
	case RankedWeighting:
		return s.Builder.Ranked(scores)
	case VolTargetWeighting:
		return s.Builder.VolTarget(annualizedVols(rows, past.Width()), signs, s.VolTarget)
	default:
		return s.Builder.Equal(signs)
	}
}

// BuildSchedule asks the strategy for the weights of every rebalance date.
//
// The strategy sees the asset columns of returns strictly before each date;
// the last column of returns is the residual (risk-free) one.
func BuildSchedule(returns *Table, freq Frequency, dates []date.Date, strategy Strategy) (*Schedule, error) {
	if returns.Width() < 2 {
		return nil, configErrorf("returns", "need at least one asset column and the residual column")
	}
	rebalances := make([]Rebalance, 0, len(dates))
	for _, on := range dates {
		past := returns.assetsBefore(on)
		weights, err := strategy.Weights(on, past)
		if err != nil {
			return nil, fmt.Errorf("weights on %s: %w", on, err)
		}
		rebalances = append(rebalances, Rebalance{On: on, Weights: weights})
	}
	return NewSchedule(freq, rebalances)
}

// assetsBefore returns a view of the rows strictly before 'on' without the
// residual column. Rows share memory with t.
func (t *Table) assetsBefore(on date.Date) *Table {
	n := t.Search(on)
	w := t.Width() - 1
	view := &Table{Dates: t.Dates[:n], Columns: t.Columns[:w], Rows: make([][]float64, n)}
	for i := range view.Rows {
		view.Rows[i] = t.Rows[i][:w:w]
	}
	return view
}

// window returns the rows on or after 'from'.
func window(t *Table, from date.Date) [][]float64 {
	return t.Rows[t.Search(from):]
}

// annualizedVols returns the annualized sample volatility of each column.
func annualizedVols(rows [][]float64, width int) []float64 {
	vols := make([]float64, width)
	col := make([]float64, len(rows))
	for j := range vols {
		for i, row := range rows {
			col[i] = row[j]
		}
		vols[j] = stdDev(col) * math.Sqrt(TradingDays)
	}
	return vols
}

func medianOf(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}
