package backtest

import "math"

// TradingDays is the number of trading days in a year.
const TradingDays = 252

// CumulativeReturns is the running product of 1 + r.
func CumulativeReturns(returns []float64) []float64 {
	cum := make([]float64, len(returns))
	growth := 1.0
	for i, r := range returns {
		growth *= 1 + r
		cum[i] = growth
	}
	return cum
}

// Drawdowns is, for each day, the loss from the previous peak of the
// cumulative return (0 or negative).
func Drawdowns(returns []float64) []float64 {
	dd := make([]float64, len(returns))
	peak := math.Inf(-1)
	for i, c := range CumulativeReturns(returns) {
		peak = math.Max(peak, c)
		dd[i] = c/peak - 1
	}
	return dd
}

// MaxDrawdown is the largest loss from a peak, as a positive ratio.
func MaxDrawdown(returns []float64) float64 {
	var worst float64
	for _, d := range Drawdowns(returns) {
		worst = math.Min(worst, d)
	}
	return -worst
}

// AnnualizedReturn is the compounded return of the series, annualized.
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return math.Pow(growth, TradingDays/float64(len(returns))) - 1
}

// Volatility is the annualized sample standard deviation of returns.
func Volatility(returns []float64) float64 {
	return stdDev(returns) * math.Sqrt(TradingDays)
}

// Sharpe is the annualized mean excess return over its standard deviation.
// riskFree may be nil.
func Sharpe(returns, riskFree []float64) float64 {
	excess := sub(returns, riskFree)
	return mean(excess) / stdDev(excess) * math.Sqrt(TradingDays)
}

// Sortino is the annualized mean return over the deviation of the returns
// below threshold (others counted as 0).
func Sortino(returns []float64, threshold float64) float64 {
	downside := make([]float64, len(returns))
	for i, r := range returns {
		if r < threshold {
			downside[i] = r
		}
	}
	return mean(returns) / stdDev(downside) * math.Sqrt(TradingDays)
}

// Beta is the sensitivity of the excess returns to the benchmark excess returns.
func Beta(returns, benchmark, riskFree []float64) float64 {
	y, x := sub(returns, riskFree), sub(benchmark, riskFree)
	return covariance(x, y) / covariance(x, x)
}

// InformationRatio is the annualized mean active return over the tracking error.
func InformationRatio(returns, benchmark []float64) float64 {
	active := sub(returns, benchmark)
	return mean(active) / stdDev(active) * math.Sqrt(TradingDays)
}

// Performance gathers the ratios of a return series over a window.
type Performance struct {
	Days             int
	AnnualizedReturn Percent
	Volatility       Percent
	MaxDrawdown      Percent
	Sharpe           float64
	Sortino          float64
	Beta             float64 // NaN without benchmark
	InformationRatio float64 // NaN without benchmark
}

// Measure computes the Performance of returns. benchmark and riskFree may
// be nil; otherwise they are aligned with returns.
func Measure(returns, benchmark, riskFree []float64, downsideThreshold float64) Performance {
	p := Performance{
		Days:             len(returns),
		AnnualizedReturn: Pct(AnnualizedReturn(returns)),
		Volatility:       Pct(Volatility(returns)),
		MaxDrawdown:      Pct(MaxDrawdown(returns)),
		Sharpe:           Sharpe(returns, riskFree),
		Sortino:          Sortino(returns, downsideThreshold),
		Beta:             math.NaN(),
		InformationRatio: math.NaN(),
	}
	if benchmark != nil {
		p.Beta = Beta(returns, benchmark, riskFree)
		p.InformationRatio = InformationRatio(returns, benchmark)
	}
	return p
}

// Timeframe compares a portfolio and its benchmark over a trailing window.
type Timeframe struct {
	Name      string // "1Y", "5Y", "Inception"
	Portfolio Performance
	Benchmark Performance
}

// Summarize measures the trailing 1 and 5 years windows (when the series is
// long enough) and the whole series.
func Summarize(portfolio, benchmark, riskFree []float64, downsideThreshold float64) []Timeframe {
	tail := func(s []float64, n int) []float64 {
		if s == nil {
			return nil
		}
		return s[len(s)-n:]
	}
	var frames []Timeframe
	for _, years := range []int{1, 5} {
		n := years * TradingDays
		if len(portfolio) < n {
			continue
		}
		frames = append(frames, Timeframe{
			Name:      trailingName(years),
			Portfolio: Measure(tail(portfolio, n), tail(benchmark, n), tail(riskFree, n), downsideThreshold),
			Benchmark: Measure(tail(benchmark, n), tail(benchmark, n), tail(riskFree, n), downsideThreshold),
		})
	}
	frames = append(frames, Timeframe{
		Name:      "Inception",
		Portfolio: Measure(portfolio, benchmark, riskFree, downsideThreshold),
		Benchmark: Measure(benchmark, benchmark, riskFree, downsideThreshold),
	})
	return frames
}

func trailingName(years int) string {
	switch years {
	case 1:
		return "1Y"
	case 5:
		return "5Y"
	default:
		return "NY"
	}
}

// sub returns a - b, b may be nil.
func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i]
		if b != nil {
			out[i] -= b[i]
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}

// stdDev is the sample standard deviation.
func stdDev(values []float64) float64 {
	return math.Sqrt(covariance(values, values))
}

// covariance is the sample covariance of x and y.
func covariance(x, y []float64) float64 {
	n := len(x)
	if n < 2 {
		return math.NaN()
	}
	mx, my := mean(x), mean(y)
	var s float64
	for i := range x {
		s += (x[i] - mx) * (y[i] - my)
	}
	return s / float64(n-1)
}
