package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type ledgerCmd struct {
	signal     string
	capital    float64
	commission float64
	shares     float64
	output     string
	noTrades   bool
}

func (*ledgerCmd) Name() string { return "ledger" }
func (*ledgerCmd) Synopsis() string {
	return "simulate the account of a long/flat/short position signal"
}
func (*ledgerCmd) Usage() string {
	return `bt ledger -signal <signal.jsonl> [-capital 1000] [-commission 1] [-shares N] [-o <out.jsonl>]

  Trades a single instrument following a daily position signal (1 long, 0 flat,
  -1 short) and prints the account report. Each line of the signal file is
  {"on":"2024-01-02","price":101.5,"position":1}.
`
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.signal, "signal", "", "Signal file (JSONL) with a price and a position per day.")
	f.Float64Var(&c.capital, "capital", 1000, "Starting capital.")
	f.Float64Var(&c.commission, "commission", 0, "Flat commission per trade.")
	f.Float64Var(&c.shares, "shares", 0, "Trade a fixed number of shares instead of all the cash.")
	f.StringVar(&c.output, "o", "", "Write the daily account states to this JSONL file, '-' for stdout.")
	f.BoolVar(&c.noTrades, "no-trades", false, "Do not list the trades in the report.")
}

func (c *ledgerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.signal == "" {
		fmt.Fprintln(os.Stderr, "Error: -signal is required")
		return subcommands.ExitUsageError
	}

	l, err := c.simulate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output != "" {
		w, err := createOutput(c.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		err = backtest.EncodeLedger(w, l)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.output, err)
			return subcommands.ExitFailure
		}
		if c.output == "-" {
			return subcommands.ExitSuccess
		}
	}

	name := strings.TrimSuffix(filepath.Base(c.signal), filepath.Ext(c.signal))
	report, err := renderer.NewLedgerReport(name, l, c.commission)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderLedger(report, renderer.LedgerRenderOptions{SkipTrades: c.noTrades}))
	return subcommands.ExitSuccess
}

func (c *ledgerCmd) simulate() (*backtest.Ledger, error) {
	f, err := os.Open(c.signal)
	if err != nil {
		return nil, fmt.Errorf("cannot open signal file: %w", err)
	}
	defer f.Close()
	s, err := backtest.DecodeSignal(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.signal, err)
	}
	return backtest.SimulateLedger(s.Dates, s.Prices, s.Positions, backtest.LedgerOptions{
		Currency:        *defaultCurrency,
		StartingCapital: c.capital,
		Commission:      c.commission,
		FixedShares:     c.shares,
		Logger:          newLogger().With().Str("signal", c.signal).Logger(),
	})
}
