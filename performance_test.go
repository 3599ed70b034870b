package backtest

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCumulativeReturnsAndDrawdowns(t *testing.T) {
	returns := []float64{0.1, -0.5, 0.2, 1}
	cum := CumulativeReturns(returns)
	if diff := cmp.Diff([]float64{1.1, 0.55, 0.66, 1.32}, cum, approx); diff != "" {
		t.Errorf("CumulativeReturns() mismatch (-want +got):\n%s", diff)
	}
	dd := Drawdowns(returns)
	if diff := cmp.Diff([]float64{0, -0.5, -0.4, 0}, dd, approx); diff != "" {
		t.Errorf("Drawdowns() mismatch (-want +got):\n%s", diff)
	}
	if got := MaxDrawdown(returns); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("MaxDrawdown() = %v, want 0.5", got)
	}
	if got := MaxDrawdown([]float64{0.01, 0.02}); got != 0 {
		t.Errorf("MaxDrawdown() of a rising series = %v, want 0", got)
	}
}

func TestAnnualizedReturn(t *testing.T) {
	// a constant daily return over a full year compounds to the yearly return.
	daily := math.Pow(1.1, 1.0/TradingDays) - 1
	returns := make([]float64, TradingDays)
	for i := range returns {
		returns[i] = daily
	}
	if got := AnnualizedReturn(returns); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("AnnualizedReturn() = %v, want 0.1", got)
	}
	if got := AnnualizedReturn(nil); !math.IsNaN(got) {
		t.Errorf("AnnualizedReturn(nil) = %v, want NaN", got)
	}
}

func TestRatios(t *testing.T) {
	p := []float64{0.01, -0.02, 0.03, 0.00, 0.02}
	b := []float64{0.005, -0.01, 0.02, 0.01, 0.01}

	// sample std of p: mean 0.008, deviations .002 -.028 .022 -.008 .012
	sd := math.Sqrt((0.000004 + 0.000784 + 0.000484 + 0.000064 + 0.000144) / 4)
	if got, want := Volatility(p), sd*math.Sqrt(TradingDays); math.Abs(got-want) > 1e-12 {
		t.Errorf("Volatility() = %v, want %v", got, want)
	}
	if got, want := Sharpe(p, nil), 0.008/sd*math.Sqrt(TradingDays); math.Abs(got-want) > 1e-9 {
		t.Errorf("Sharpe() = %v, want %v", got, want)
	}
	if got := Beta(p, p, nil); math.Abs(got-1) > 1e-12 {
		t.Errorf("Beta() against itself = %v, want 1", got)
	}
	if got := Beta(p, b, nil); got <= 0 {
		t.Errorf("Beta() of co-moving series = %v, want positive", got)
	}
	if got := InformationRatio(p, p); !math.IsNaN(got) {
		t.Errorf("InformationRatio() against itself = %v, want NaN", got)
	}
	if got := Sortino(p, 0); got <= 0 {
		t.Errorf("Sortino() = %v, want positive", got)
	}
}

func TestSummarize(t *testing.T) {
	n := 5*TradingDays + 10
	p, b := make([]float64, n), make([]float64, n)
	for i := range p {
		p[i] = 0.001 * float64(i%5-2)
		b[i] = 0.0005 * float64(i%3-1)
	}
	frames := Summarize(p, b, nil, 0)
	var names []string
	for _, f := range frames {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"1Y", "5Y", "Inception"}, names); diff != "" {
		t.Errorf("Summarize() timeframes mismatch (-want +got):\n%s", diff)
	}
	if frames[0].Portfolio.Days != TradingDays {
		t.Errorf("1Y window has %d days, want %d", frames[0].Portfolio.Days, TradingDays)
	}
	if got := frames[2].Benchmark.Beta; math.Abs(got-1) > 1e-9 {
		t.Errorf("benchmark beta = %v, want 1", got)
	}

	short := Summarize(p[:100], nil, nil, 0)
	if len(short) != 1 || !math.IsNaN(short[0].Portfolio.Beta) {
		t.Errorf("Summarize() of a short series without benchmark = %+v", short)
	}
}
