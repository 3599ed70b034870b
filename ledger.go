package backtest

import (
	"fmt"
	"iter"

	"github.com/etnz/backtest/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerOptions holds the account parameters of a position ledger simulation.
type LedgerOptions struct {
	Currency        string // reporting currency, "USD" when empty.
	StartingCapital float64
	Commission      float64 // flat fee per trade
	// FixedShares, when positive, is the number of shares traded on every
	// entry instead of investing all the available cash.
	FixedShares float64

	Logger zerolog.Logger
}

// AccountState is the account at the close of one day.
//
// Total == Cash + Holdings - Commissions holds exactly for every state.
type AccountState struct {
	On          date.Date
	Price       Money
	Position    Position
	Transition  Transition // from the previous day position
	Cash        Money
	Shares      Quantity
	Holdings    Money
	Commissions Money // cumulative
	Total       Money
}

// Ledger is the chain of daily account states of a simulation.
type Ledger struct {
	Currency string
	States   []AccountState
}

// SimulateLedger turns a position signal into the daily account ledger.
//
// Day 0 is the seed: all cash, no shares. From day 1 on, the move from the
// previous position to the current one is traded at the day price, and every
// trade (a flip included) pays one commission. Commissions accumulate apart
// from the cash and are deducted from the total.
func SimulateLedger(dates []date.Date, prices []float64, positions []Position, opts LedgerOptions) (*Ledger, error) {
	if len(prices) != len(dates) {
		return nil, &LengthMismatchError{What: "prices", Want: len(dates), Got: len(prices)}
	}
	if len(positions) != len(dates) {
		return nil, &LengthMismatchError{What: "positions", Want: len(dates), Got: len(positions)}
	}
	if len(dates) == 0 {
		return nil, configErrorf("dates", "nothing to simulate")
	}
	for i, p := range positions {
		if !p.Valid() {
			return nil, configErrorf(fmt.Sprintf("positions[%s]", dates[i]), "%d is not one of -1, 0, 1", int(p))
		}
	}
	if opts.FixedShares < 0 {
		return nil, configErrorf("fixed shares", "must be positive, got %v", opts.FixedShares)
	}
	cur := opts.Currency
	if cur == "" {
		cur = "USD"
	}
	acc := accountant{
		commission: M(opts.Commission, cur),
		fixed:      Q(opts.FixedShares),
	}

	l := &Ledger{Currency: cur, States: make([]AccountState, len(dates))}
	l.States[0] = seed(dates[0], M(prices[0], cur), positions[0], M(opts.StartingCapital, cur))
	for t := 1; t < len(dates); t++ {
		next, err := acc.step(l.States[t-1], dates[t], M(prices[t], cur), positions[t])
		if err != nil {
			return nil, err
		}
		l.States[t] = next
	}
	final := l.Final()
	opts.Logger.Debug().Str("sim", "ledger").Int("days", len(dates)).
		Stringer("total", final.Total).Stringer("commissions", final.Commissions).Msg("simulation done")
	return l, nil
}

// seed returns the day 0 state: the whole capital in cash.
func seed(on date.Date, price Money, position Position, capital Money) AccountState {
	zero := M(0, capital.Currency())
	return AccountState{
		On:          on,
		Price:       price,
		Position:    position,
		Cash:        capital,
		Holdings:    zero,
		Commissions: zero,
		Total:       capital,
	}
}

// accountant applies transitions to account states.
type accountant struct {
	commission Money
	fixed      Quantity // zero to invest all the cash
}

// step derives the state of day 'on' from the previous one.
func (a accountant) step(prev AccountState, on date.Date, price Money, position Position) (AccountState, error) {
	t := NewTransition(prev.Position, position)
	next := prev
	next.On, next.Price, next.Position, next.Transition = on, price, position, t

	var err error
	switch t.Kind {
	case Hold:
		// carried forward, re-marked below.
	case Open:
		next, err = a.open(next, t.Side)
	case Close:
		next = a.close(next)
	case Flip:
		next, err = a.open(a.close(next), t.Side)
	}
	if err != nil {
		return AccountState{}, err
	}
	if t.Trades() {
		next.Commissions = next.Commissions.Add(a.commission)
	}
	next.Holdings = next.Price.Mul(next.Shares)
	next.Total = next.Cash.Add(next.Holdings).Sub(next.Commissions)
	return next, nil
}

// open enters side with the available cash net of one commission, or with
// the fixed share count.
func (a accountant) open(s AccountState, side Position) (AccountState, error) {
	shares := a.fixed
	if shares.IsZero() {
		if s.Price.IsZero() {
			return s, &DegenerateStateError{On: s.On, Reason: "cannot size a position at a zero price"}
		}
		shares = s.Cash.Sub(a.commission).DivPrice(s.Price)
	}
	if side == Short {
		shares = shares.Neg()
	}
	s.Shares = shares
	s.Cash = s.Cash.Sub(s.Price.Mul(shares))
	return s, nil
}

// close liquidates (or covers) all shares into cash.
func (a accountant) close(s AccountState) AccountState {
	s.Cash = s.Cash.Add(s.Price.Mul(s.Shares))
	s.Shares = Quantity{}
	return s
}

// Len returns the number of days in the ledger.
func (l *Ledger) Len() int { return len(l.States) }

// Final returns the last state.
func (l *Ledger) Final() AccountState { return l.States[len(l.States)-1] }

// Trades returns an iterator over the states where a trade occurred.
func (l *Ledger) Trades() iter.Seq[AccountState] {
	return func(yield func(AccountState) bool) {
		for _, s := range l.States {
			if s.Transition.Trades() && !yield(s) {
				return
			}
		}
	}
}

// Dates returns the ledger dates.
func (l *Ledger) Dates() []date.Date {
	dates := make([]date.Date, len(l.States))
	for i, s := range l.States {
		dates[i] = s.On
	}
	return dates
}

// Returns is the daily simple return of the total equity. Day 0 is 0.
func (l *Ledger) Returns() ([]float64, error) {
	returns := make([]float64, len(l.States))
	for t := 1; t < len(l.States); t++ {
		prev := l.States[t-1].Total
		if prev.IsZero() {
			return nil, &DegenerateStateError{On: l.States[t].On, Reason: "previous total equity is zero"}
		}
		returns[t] = l.States[t].Total.value.Div(prev.value).Sub(decimal.NewFromInt(1)).InexactFloat64()
	}
	return returns, nil
}

// CumulativeReturns is the running product of 1 + daily return.
func (l *Ledger) CumulativeReturns() ([]float64, error) {
	returns, err := l.Returns()
	if err != nil {
		return nil, err
	}
	return CumulativeReturns(returns), nil
}
