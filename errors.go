package backtest

import (
	"fmt"

	"github.com/etnz/backtest/date"
)

// ConfigurationError reports an input that cannot be simulated: a malformed
// schedule, weights that do not sum to one, an unsupported frequency, a
// signal outside {-1, 0, +1}...
//
// It is always returned before any simulation step runs.
type ConfigurationError struct {
	Field  string // the offending input, e.g. "schedule[3].weights"
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LengthMismatchError reports series that should be aligned but are not.
type LengthMismatchError struct {
	What      string
	Want, Got int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: %s: want %d got %d", e.What, e.Want, e.Got)
}

// DegenerateStateError reports a state the recurrence cannot continue from,
// like a portfolio whose value has been driven to zero.
type DegenerateStateError struct {
	On     date.Date // zero when not tied to a day
	Reason string
}

func (e *DegenerateStateError) Error() string {
	if e.On.IsZero() {
		return "degenerate state: " + e.Reason
	}
	return fmt.Sprintf("degenerate state on %s: %s", e.On, e.Reason)
}
