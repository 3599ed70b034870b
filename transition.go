package backtest

import "fmt"

// Position is a discrete trading signal: short, flat or long.
type Position int

const (
	Short Position = -1
	Flat  Position = 0
	Long  Position = 1
)

func (p Position) String() string {
	switch p {
	case Short:
		return "short"
	case Flat:
		return "flat"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// Valid reports whether p is one of Short, Flat or Long.
func (p Position) Valid() bool { return p >= Short && p <= Long }

// TransitionKind is the kind of trade a position change requires.
type TransitionKind int

const (
	// Hold carries the position forward, nothing is traded.
	Hold TransitionKind = iota
	// Open enters a position from flat.
	Open
	// Close returns to flat.
	Close
	// Flip goes from long to short or short to long in a single trade.
	Flip
)

func (k TransitionKind) String() string {
	switch k {
	case Hold:
		return "hold"
	case Open:
		return "open"
	case Close:
		return "close"
	case Flip:
		return "flip"
	default:
		return fmt.Sprintf("transition(%d)", int(k))
	}
}

// Transition is the trade between two consecutive positions.
// Side is the position held after Open or Flip, Flat otherwise.
type Transition struct {
	Kind TransitionKind
	Side Position
}

func (t Transition) String() string {
	if t.Side == Flat {
		return t.Kind.String()
	}
	return t.Kind.String() + " " + t.Side.String()
}

// Trades reports whether the transition pays a commission.
func (t Transition) Trades() bool { return t.Kind != Hold }

// NewTransition classifies the move from prev to curr.
func NewTransition(prev, curr Position) Transition {
	switch {
	case prev == curr:
		return Transition{Kind: Hold}
	case prev == Flat:
		return Transition{Kind: Open, Side: curr}
	case curr == Flat:
		return Transition{Kind: Close}
	default:
		return Transition{Kind: Flip, Side: curr}
	}
}
