package renderer

import (
	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// LedgerReport is the data of a position ledger report.
type LedgerReport struct {
	Name            string
	AsOf            string
	Range           date.Range
	StartingCapital backtest.Money
	Commission      backtest.Money
	Final           backtest.AccountState
	Growth          backtest.Percent
	Trades          []Trade
	Timeframes      []backtest.Timeframe
	HasBenchmark    bool // always false, the ledger has no benchmark.
}

// Trade is a line of the trade log.
type Trade struct {
	On     date.Date
	Action string
	Price  backtest.Money
	Shares backtest.Quantity
	Cash   backtest.Money
	Total  backtest.Money
}

// NewLedgerReport summarizes a ledger.
func NewLedgerReport(name string, l *backtest.Ledger, commission float64) (*LedgerReport, error) {
	returns, err := l.Returns()
	if err != nil {
		return nil, err
	}
	first, final := l.States[0], l.Final()
	r := &LedgerReport{
		Name:            name,
		AsOf:            Now().Format("2006-01-02 15:04:05"),
		Range:           date.NewRange(first.On, final.On),
		StartingCapital: first.Total,
		Commission:      backtest.M(commission, l.Currency),
		Final:           final,
		Growth:          growth(returns),
		Timeframes:      backtest.Summarize(returns, nil, nil, 0),
	}
	for s := range l.Trades() {
		r.Trades = append(r.Trades, Trade{
			On:     s.On,
			Action: s.Transition.String(),
			Price:  s.Price,
			Shares: s.Shares,
			Cash:   s.Cash,
			Total:  s.Total,
		})
	}
	return r, nil
}
