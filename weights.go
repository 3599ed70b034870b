package backtest

import "sort"

// WeightBuilder turns per-asset signals into target weight vectors.
//
// Leverage is the gross long exposure of a long-only portfolio (1 = 100%).
// MaxShortWeight is the total short exposure; when shorts exist the longs are
// levered by the same amount so that the net exposure stays at Leverage.
// All returned vectors carry the residual slot last.
type WeightBuilder struct {
	Leverage       float64
	MaxShortWeight float64

	// AllCashWhenFlat resolves a portfolio with neither long nor short
	// exposure to an all-cash vector. When false it is a DegenerateStateError.
	AllCashWhenFlat bool
}

// flat returns the all-cash vector or the degenerate error.
func (b WeightBuilder) flat(n int) ([]float64, error) {
	if !b.AllCashWhenFlat {
		return nil, &DegenerateStateError{Reason: "no long nor short exposure"}
	}
	return WithResidual(make([]float64, n)), nil
}

// Equal splits the exposure equally among longs (sign > 0) and among shorts (sign < 0).
func (b WeightBuilder) Equal(signs []float64) ([]float64, error) {
	var nLongs, nShorts int
	for _, s := range signs {
		switch {
		case s > 0:
			nLongs++
		case s < 0:
			nShorts++
		}
	}
	if nLongs == 0 && nShorts == 0 {
		return b.flat(len(signs))
	}
	long := b.Leverage
	if nShorts > 0 {
		long += b.MaxShortWeight
	}
	w := make([]float64, len(signs))
	for i, s := range signs {
		switch {
		case s > 0:
			w[i] = long / float64(nLongs)
		case s < 0:
			w[i] = -b.MaxShortWeight / float64(nShorts)
		}
	}
	return WithResidual(w), nil
}

// Ranked weights assets linearly by the rank of their score: the lower half
// is short, the upper half long, 100% each side before leverage is applied
// to the longs.
func (b WeightBuilder) Ranked(scores []float64) ([]float64, error) {
	n := len(scores)
	if n == 0 {
		return b.flat(0)
	}
	ranks := minRanks(scores)
	half := float64(n) / 2
	w := make([]float64, n)
	gross := 0.0
	for i, r := range ranks {
		if float64(r) > half {
			w[i] = float64(r) - half
		} else {
			w[i] = float64(r) - half - 1
		}
		if w[i] < 0 {
			gross -= w[i]
		} else {
			gross += w[i]
		}
	}
	for i := range w {
		w[i] = w[i] / gross * 2
		if w[i] > 0 {
			w[i] *= b.Leverage + 1
		}
	}
	return WithResidual(w), nil
}

// VolTarget scales signs by target/vol, then normalizes the long book to the
// leverage (plus shorts) and the short book to -MaxShortWeight.
func (b WeightBuilder) VolTarget(vol, signs []float64, target float64) ([]float64, error) {
	if len(vol) != len(signs) {
		return nil, &LengthMismatchError{What: "volatilities", Want: len(signs), Got: len(vol)}
	}
	scaled := make([]float64, len(signs))
	var longs, shorts float64
	for i, s := range signs {
		if s == 0 {
			continue
		}
		if vol[i] <= 0 {
			return nil, configErrorf("volatility", "asset %d has a non positive volatility %v", i, vol[i])
		}
		scaled[i] = s * target / vol[i]
		if scaled[i] > 0 {
			longs += scaled[i]
		} else {
			shorts += scaled[i]
		}
	}
	if longs == 0 && shorts == 0 {
		return b.flat(len(signs))
	}
	long := b.Leverage
	if shorts < 0 {
		long += b.MaxShortWeight
	}
	w := make([]float64, len(signs))
	for i, s := range scaled {
		switch {
		case s > 0:
			w[i] = s / longs * long
		case s < 0:
			w[i] = -s / shorts * b.MaxShortWeight
		}
	}
	return WithResidual(w), nil
}

// minRanks returns the 1-based ranks of values, ties sharing the lowest rank.
func minRanks(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })
	ranks := make([]int, len(values))
	for k, i := range order {
		if k > 0 && values[i] == values[order[k-1]] {
			ranks[i] = ranks[order[k-1]]
			continue
		}
		ranks[i] = k + 1
	}
	return ranks
}

// aboveMedian returns +1 for values strictly above the median, -1 otherwise.
func aboveMedian(values []float64) []float64 {
	median := medianOf(values)
	signs := make([]float64, len(values))
	for i, v := range values {
		signs[i] = -1
		if v > median {
			signs[i] = 1
		}
	}
	return signs
}
