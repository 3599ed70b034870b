package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type rebalanceCmd struct {
	config string
	output string
	report bool
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "run a rebalancing backtest described by a run file" }
func (*rebalanceCmd) Usage() string {
	return `bt rebalance -config <run.yaml> [-o <out.jsonl>] [-report=false]

  Simulates a portfolio rebalanced to target weights at every rebalance date,
  drifting with the asset returns in between, and prints a performance report.

  See 'bt topic config' for the run file format.
`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Run file (YAML) describing the backtest.")
	f.StringVar(&c.output, "o", "", "Write the daily results to this JSONL file, '-' for stdout.")
	f.BoolVar(&c.report, "report", true, "Print the Markdown report.")
}

func (c *rebalanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.config == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		return subcommands.ExitUsageError
	}

	run, res, err := runConfig(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output != "" {
		if err := writeRebalance(c.output, run, res); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if c.report && c.output != "-" {
		printMarkdown(renderer.RenderRebalance(rebalanceReport(run, res)))
	}
	return subcommands.ExitSuccess
}

// runConfig loads, prepares and simulates a run file.
func runConfig(filename string) (*backtest.Run, *backtest.RebalanceResult, error) {
	conf, err := backtest.LoadRunConfig(filename)
	if err != nil {
		return nil, nil, err
	}
	return simulateConfig(filename, conf)
}

// simulateConfig prepares and simulates a run file already loaded.
func simulateConfig(filename string, conf *backtest.RunConfig) (*backtest.Run, *backtest.RebalanceResult, error) {
	log := newLogger().With().Str("run", conf.Name).Logger()
	run, err := conf.Prepare(filepath.Dir(filename), log)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	res, err := run.Simulate()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	return run, res, nil
}

func rebalanceReport(run *backtest.Run, res *backtest.RebalanceResult) *renderer.RebalanceReport {
	return renderer.NewRebalanceReport(run.Name, run.Schedule, run.Options.Slippage, run.Returns.Columns, res)
}

func writeRebalance(filename string, run *backtest.Run, res *backtest.RebalanceResult) error {
	w, err := createOutput(filename)
	if err != nil {
		return err
	}
	if err := backtest.EncodeRebalance(w, res, run.Returns.Columns); err != nil {
		w.Close()
		return fmt.Errorf("writing %q: %w", filename, err)
	}
	return w.Close()
}
