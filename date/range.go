package date

import (
	"fmt"
	"iter"
)

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange creates a new date range. If 'from' is after 'to', they are swapped.
func NewRange(from, to Date) Range {
	if from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// String returns "from..to".
func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// Days returns an iterator that yields each date within the range, inclusive.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Starts returns an iterator over the first day of every period p that
// starts within the range.
func (r Range) Starts(p Period) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		current := r.From.StartOf(p)
		if current.Before(r.From) {
			current = current.EndOf(p).Add(1)
		}
		for ; !current.After(r.To); current = current.EndOf(p).Add(1) {
			if !yield(current) {
				return
			}
		}
	}
}
