package backtest

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/etnz/backtest/date"
)

// WeightTolerance is the accepted distance between the sum of a weight vector and 1.
const WeightTolerance = 1e-9

// Frequency is how often a portfolio gets rebalanced.
type Frequency int

const (
	// Monthly rebalances on the first day of every month.
	Monthly Frequency = iota
	// Quarterly rebalances on the first day of every quarter.
	Quarterly
	// Dynamic rebalances on explicit, event-driven dates.
	Dynamic
)

func (f Frequency) String() string {
	switch f {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("frequency(%d)", int(f))
	}
}

// period returns the calendar period of fixed frequencies.
func (f Frequency) period() (date.Period, bool) {
	switch f {
	case Monthly:
		return date.Monthly, true
	case Quarterly:
		return date.Quarterly, true
	default:
		return date.Daily, false
	}
}

// ParseFrequency parses a frequency name. Pandas offset aliases "MS" and "QS" are accepted.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "ms":
		return Monthly, nil
	case "quarterly", "quarter", "qs":
		return Quarterly, nil
	case "dynamic", "event":
		return Dynamic, nil
	default:
		return Monthly, configErrorf("frequency", "unsupported rebalance frequency %q", s)
	}
}

// RebalanceDates lists the rebalance dates of a fixed frequency between from and to.
//
// The dates are the period starts s with from <= s < roll, where roll is 'to'
// when it is a month start, or the first day of the month after 'to'
// otherwise. Dynamic frequencies have no generated dates.
func RebalanceDates(from, to date.Date, freq Frequency) ([]date.Date, error) {
	p, ok := freq.period()
	if !ok {
		return nil, configErrorf("frequency", "%s rebalance dates come from the weights, not the calendar", freq)
	}
	roll := to
	if !to.IsStartOf(date.Monthly) {
		roll = to.EndOf(date.Monthly).Add(1)
	}
	var dates []date.Date
	for s := range date.NewRange(from, roll).Starts(p) {
		if s.Before(roll) {
			dates = append(dates, s)
		}
	}
	return dates, nil
}

// Rebalance is a scheduled reset of the portfolio to target weights.
//
// Weights has one slot per instrument plus a trailing residual slot.
type Rebalance struct {
	On      date.Date
	Weights []float64
}

// Schedule is the ordered list of rebalances of a backtest.
type Schedule struct {
	Frequency  Frequency
	Rebalances []Rebalance
}

// NewSchedule validates rebalances and returns a schedule.
//
// Rebalances must be non-empty, strictly ascending, share the same weight
// length and each weight vector must sum to one. Monthly and Quarterly
// rebalances must be on period starts.
func NewSchedule(freq Frequency, rebalances []Rebalance) (*Schedule, error) {
	if _, ok := freq.period(); !ok && freq != Dynamic {
		return nil, configErrorf("frequency", "unsupported rebalance frequency %s", freq)
	}
	if len(rebalances) == 0 {
		return nil, configErrorf("schedule", "no rebalance date")
	}
	var errs error
	period, fixed := freq.period()
	width := len(rebalances[0].Weights)
	for i, r := range rebalances {
		field := fmt.Sprintf("schedule[%s]", r.On)
		if i > 0 && !rebalances[i-1].On.Before(r.On) {
			errs = errors.Join(errs, configErrorf(field, "dates are not strictly ascending"))
		}
		if fixed && !r.On.IsStartOf(period) {
			errs = errors.Join(errs, configErrorf(field, "%s rebalances must fall on the first day of a %s period, use the dynamic frequency for other dates", freq, period))
		}
		if len(r.Weights) != width {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", field, &LengthMismatchError{What: "weights", Want: width, Got: len(r.Weights)}))
			continue
		}
		if len(r.Weights) < 2 {
			errs = errors.Join(errs, configErrorf(field, "weights need at least one instrument and the residual slot"))
			continue
		}
		sum := 0.0
		for _, w := range r.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				errs = errors.Join(errs, configErrorf(field, "weight %v is not finite", w))
			}
			sum += w
		}
		if math.Abs(sum-1) > WeightTolerance {
			errs = errors.Join(errs, configErrorf(field, "weights sum to %v, want 1", sum))
		}
	}
	if errs != nil {
		return nil, errs
	}
	s := &Schedule{Frequency: freq, Rebalances: make([]Rebalance, len(rebalances))}
	for i, r := range rebalances {
		s.Rebalances[i] = Rebalance{On: r.On, Weights: slices.Clone(r.Weights)}
	}
	return s, nil
}

// Len returns the number of rebalances.
func (s *Schedule) Len() int { return len(s.Rebalances) }

// Width returns the length of the weight vectors, residual included.
func (s *Schedule) Width() int { return len(s.Rebalances[0].Weights) }

// end returns the last day of the i-th rebalance interval.
//
// last is the last available date, used for the final interval.
func (s *Schedule) end(i int, last date.Date) date.Date {
	if i == len(s.Rebalances)-1 {
		return last
	}
	next := s.Rebalances[i+1].On.Add(-1)
	p, ok := s.Frequency.period()
	if !ok {
		return next
	}
	if end := s.Rebalances[i].On.EndOf(p); end.Before(next) {
		return end
	}
	return next
}

// WithResidual appends the residual (risk-free) slot so that weights sum to one.
func WithResidual(weights []float64) []float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return append(slices.Clone(weights), 1-sum)
}
