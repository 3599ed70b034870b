// Package backtest simulates portfolios over daily bars. It is local-first
// and deterministic: the same inputs always produce the same series.
//
// It provides two simulators:
//   - Rebalancing: a weight vector is reset on scheduled dates and left to
//     drift with asset returns in between (SimulateRebalancing). The realized
//     daily return is the dot product of the drifted weights and the day
//     returns, the slippage is charged on rebalance days.
//   - Position ledger: a discrete long/flat/short signal on a single
//     instrument is turned into a day by day account of cash, shares,
//     holdings and commissions (SimulateLedger), in exact decimal arithmetic.
//
// Around them, the package builds rebalance schedules from strategies
// (BuildSchedule), aggregates performance ratios (Summarize), reads series
// and YAML run files, and writes results as JSONL.
//
// This package serves as the foundational logic for the `bt` command-line
// tool.
package backtest
