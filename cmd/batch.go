package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type batchCmd struct {
	jobs   int
	outDir string
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "run several rebalancing backtests in parallel" }
func (*batchCmd) Usage() string {
	return `bt batch [-j <jobs>] [-o <dir>] <run.yaml>...

  Runs every run file concurrently and prints a table comparing their
  performance since inception. The first failing run cancels the batch.
  Run names must be unique.
`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.jobs, "j", runtime.NumCPU(), "Maximum number of runs simulated at the same time.")
	f.StringVar(&c.outDir, "o", "", "Write the daily results of each run to <dir>/<name>.jsonl.")
}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one run file is required")
		return subcommands.ExitUsageError
	}
	confs, err := loadBatch(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.outDir != "" {
		if err := os.MkdirAll(c.outDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	tasks := make([]func(context.Context) (*renderer.RebalanceReport, error), len(confs))
	for i, filename := range f.Args() {
		tasks[i] = func(ctx context.Context) (*renderer.RebalanceReport, error) {
			return c.run(ctx, filename, confs[i])
		}
	}
	reports, err := backtest.RunParallel(ctx, c.jobs, tasks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderBatch(renderer.NewBatchReport(reports)))
	return subcommands.ExitSuccess
}

// loadBatch reads every run file. Run names must be unique: they name the
// output files and the rows of the batch report.
func loadBatch(filenames []string) ([]*backtest.RunConfig, error) {
	confs := make([]*backtest.RunConfig, len(filenames))
	seen := make(map[string]string, len(filenames))
	for i, filename := range filenames {
		conf, err := backtest.LoadRunConfig(filename)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[conf.Name]; ok {
			return nil, fmt.Errorf("%s and %s are both named %q", prev, filename, conf.Name)
		}
		seen[conf.Name] = filename
		confs[i] = conf
	}
	return confs, nil
}

func (c *batchCmd) run(ctx context.Context, filename string, conf *backtest.RunConfig) (*renderer.RebalanceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run, res, err := simulateConfig(filename, conf)
	if err != nil {
		return nil, err
	}
	if c.outDir != "" {
		if err := writeRebalance(filepath.Join(c.outDir, run.Name+".jsonl"), run, res); err != nil {
			return nil, err
		}
	}
	return rebalanceReport(run, res), nil
}
