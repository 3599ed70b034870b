package backtest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/etnz/backtest/date"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// RunConfig describes a rebalancing backtest in a YAML run file.
//
//	name: 60/40
//	start: 2020-01-01
//	end: 2023-12-31
//	frequency: monthly
//	returns:
//	  file: returns.jsonl
//	  columns: [SPY, TLT, RF] # the residual (risk-free) column is last
//	benchmark:
//	  file: returns.jsonl
//	  columns: [SPY]
//	  weights: [1]
//	slippage: 0.001
//	strategy:
//	  kind: static
//	  weights: [0.6, 0.4]
type RunConfig struct {
	Name           string               `yaml:"name"`
	Start          string               `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	End            string               `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
	Frequency      string               `yaml:"frequency" validate:"required"`
	Returns        SeriesConfig         `yaml:"returns"`
	Benchmark      *BenchmarkConfig     `yaml:"benchmark"`
	Slippage       float64              `yaml:"slippage" validate:"gte=0"`
	Leverage       float64              `yaml:"leverage" validate:"gte=0"`
	MaxShortWeight float64              `yaml:"max_short_weight" validate:"gte=0"`
	Strategy       StrategyConfig       `yaml:"strategy"`
	Rebalances     map[string][]float64 `yaml:"rebalances" validate:"omitempty,dive,keys,datetime=2006-01-02,endkeys,min=2"`
}

// SeriesConfig locates a table: a JSONL file, or a JSON document read with
// JSONPath expressions when DatesPath is set.
type SeriesConfig struct {
	File      string   `yaml:"file" validate:"required"`
	Columns   []string `yaml:"columns" validate:"omitempty,dive,required"`
	DatesPath string   `yaml:"dates_path"`
	Paths     []string `yaml:"paths" validate:"required_with=DatesPath"`
}

// BenchmarkConfig is the benchmark table and its weights.
type BenchmarkConfig struct {
	SeriesConfig `yaml:",inline"`
	Weights      []float64 `yaml:"weights" validate:"required,min=1"`
	// Rebalance resets the benchmark to Weights at every rebalance date
	// instead of buying and holding.
	Rebalance bool `yaml:"rebalance"`
}

// StrategyConfig selects how the target weights are decided.
type StrategyConfig struct {
	Kind            string    `yaml:"kind" validate:"required,oneof=static explicit trailing-return ma-crossover"`
	Weights         []float64 `yaml:"weights" validate:"required_if=Kind static"`
	Lookback        int       `yaml:"lookback" validate:"required_if=Kind trailing-return,gte=0"`
	Fast            int       `yaml:"fast" validate:"required_if=Kind ma-crossover,gte=0"`
	Slow            int       `yaml:"slow" validate:"required_if=Kind ma-crossover,gte=0"`
	Weighting       string    `yaml:"weighting"`
	VolTarget       float64   `yaml:"vol_target" validate:"gte=0"`
	AllCashWhenFlat bool      `yaml:"all_cash_when_flat"`
}

// LoadRunConfig reads and validates a YAML run file.
func LoadRunConfig(filename string) (*RunConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read run file: %w", err)
	}
	c, err := ParseRunConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return c, nil
}

// ParseRunConfig decodes and validates a YAML run description.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	var c RunConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

// newValidator reports fields by their yaml names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the run description. Every error found is reported.
func (c *RunConfig) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = errors.Join(errs, configErrorf(fe.Namespace(), "failed on %q %s", fe.Tag(), fe.Param()))
		}
	}
	if _, err := ParseFrequency(c.Frequency); err != nil {
		errs = errors.Join(errs, err)
	}
	weighting, err := ParseWeighting(c.Strategy.Weighting)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	// the ranked book is 100% short before leverage, the exposure check would
	// reject every rebalance.
	if weighting == RankedWeighting && c.Leverage > 0 && c.MaxShortWeight < 1 {
		errs = errors.Join(errs, configErrorf("max_short_weight", "ranked weighting shorts 100%% of the capital, got %v with leverage %v", c.MaxShortWeight, c.Leverage))
	}
	if c.Returns.DatesPath != "" && len(c.Returns.Paths) != len(c.Returns.Columns) {
		errs = errors.Join(errs, configErrorf("returns.paths", "%d paths for %d columns", len(c.Returns.Paths), len(c.Returns.Columns)))
	}
	if c.Strategy.Kind == "explicit" && len(c.Rebalances) == 0 {
		errs = errors.Join(errs, configErrorf("rebalances", "an explicit strategy needs rebalances"))
	}
	if c.Start != "" && c.End != "" && c.End < c.Start {
		errs = errors.Join(errs, configErrorf("end", "%s is before start %s", c.End, c.Start))
	}
	return errs
}

// Run is a prepared backtest: tables loaded and schedule built.
type Run struct {
	Name      string
	Returns   *Table
	Benchmark *Table
	Schedule  *Schedule
	Options   RebalanceOptions
}

// Prepare loads the tables (relative paths are resolved against dir) and
// builds the rebalance schedule.
func (c *RunConfig) Prepare(dir string, log zerolog.Logger) (*Run, error) {
	freq, err := ParseFrequency(c.Frequency)
	if err != nil {
		return nil, err
	}
	returns, err := c.Returns.load(dir)
	if err != nil {
		return nil, fmt.Errorf("returns: %w", err)
	}
	if returns.Len() == 0 {
		return nil, configErrorf("returns", "no returns in %q", c.Returns.File)
	}
	start, end := returns.Dates[0], returns.Dates[returns.Len()-1]
	if c.Start != "" {
		start = date.MustParse(c.Start)
	}
	if c.End != "" {
		end = date.MustParse(c.End)
	}
	returns = returns.until(end)

	run := &Run{
		Name:    c.Name,
		Returns: returns,
		Options: RebalanceOptions{
			Slippage:       c.Slippage,
			Leverage:       c.Leverage,
			MaxShortWeight: c.MaxShortWeight,
			Logger:         log,
		},
	}

	dates, err := c.rebalanceDates(freq, start, end)
	if err != nil {
		return nil, err
	}
	strategy, err := c.strategy()
	if err != nil {
		return nil, err
	}
	if run.Schedule, err = BuildSchedule(returns, freq, dates, strategy); err != nil {
		return nil, err
	}

	if b := c.Benchmark; b != nil {
		if run.Benchmark, err = b.load(dir); err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
		run.Benchmark = run.Benchmark.until(end)
		run.Options.BenchmarkWeights = b.Weights
		if b.Rebalance {
			bdates := make([]date.Date, run.Schedule.Len())
			for i, r := range run.Schedule.Rebalances {
				bdates[i] = r.On
			}
			run.Benchmark = run.Benchmark.withCash()
			if run.Options.BenchmarkSchedule, err = benchmarkSchedule(freq, bdates, b.Weights); err != nil {
				return nil, fmt.Errorf("benchmark: %w", err)
			}
		}
	}
	return run, nil
}

// Simulate runs the prepared backtest.
func (r *Run) Simulate() (*RebalanceResult, error) {
	return SimulateRebalancing(r.Schedule, r.Returns, r.Benchmark, r.Options)
}

func (c *RunConfig) rebalanceDates(freq Frequency, start, end date.Date) ([]date.Date, error) {
	if c.Strategy.Kind == "explicit" || freq == Dynamic {
		if len(c.Rebalances) == 0 {
			return nil, configErrorf("rebalances", "%s rebalancing needs explicit rebalances", freq)
		}
		dates := make([]date.Date, 0, len(c.Rebalances))
		for k := range c.Rebalances {
			on := date.MustParse(k)
			if on.Before(start) || on.After(end) {
				continue
			}
			dates = append(dates, on)
		}
		slices.SortFunc(dates, date.Date.Compare)
		return dates, nil
	}
	return RebalanceDates(start, end, freq)
}

func (c *RunConfig) strategy() (Strategy, error) {
	s := c.Strategy
	weighting, err := ParseWeighting(s.Weighting)
	if err != nil {
		return nil, err
	}
	builder := WeightBuilder{
		Leverage:        c.Leverage,
		MaxShortWeight:  c.MaxShortWeight,
		AllCashWhenFlat: s.AllCashWhenFlat,
	}
	if builder.Leverage == 0 {
		builder.Leverage = 1
	}
	switch s.Kind {
	case "static":
		return Static(WithResidual(s.Weights)), nil
	case "explicit":
		weights := make(map[date.Date][]float64, len(c.Rebalances))
		for k, w := range c.Rebalances {
			weights[date.MustParse(k)] = w
		}
		return Explicit(weights), nil
	case "trailing-return":
		return TrailingReturn{Lookback: s.Lookback, Weighting: weighting, VolTarget: s.VolTarget, Builder: builder}, nil
	case "ma-crossover":
		return MovingAverageCrossover{Fast: s.Fast, Slow: s.Slow, Weighting: weighting, VolTarget: s.VolTarget, Builder: builder}, nil
	default:
		return nil, configErrorf("strategy.kind", "unsupported strategy %q", s.Kind)
	}
}

// benchmarkSchedule rebalances a benchmark to weights, plus the residual slot
// of the cash column added by withCash.
func benchmarkSchedule(freq Frequency, dates []date.Date, weights []float64) (*Schedule, error) {
	rebalances := make([]Rebalance, len(dates))
	for i, on := range dates {
		rebalances[i] = Rebalance{On: on, Weights: WithResidual(weights)}
	}
	return NewSchedule(freq, rebalances)
}

// load decodes the table described by s.
func (s SeriesConfig) load(dir string) (*Table, error) {
	filename := s.File
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(dir, filename)
	}
	if s.DatesPath == "" {
		return DecodeTableFile(filename, s.Columns...)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
	}
	defer f.Close()
	columns := make([]ColumnPath, len(s.Columns))
	for i, name := range s.Columns {
		columns[i] = ColumnPath{Name: name, Path: s.Paths[i]}
	}
	t, err := DecodeTableJSONPath(f, s.DatesPath, columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// until returns a view of the rows on or before end.
func (t *Table) until(end date.Date) *Table {
	n := t.Search(end.Add(1))
	return &Table{Dates: t.Dates[:n], Columns: t.Columns, Rows: t.Rows[:n]}
}

// withCash returns a copy of t with a trailing zero return "cash" column.
func (t *Table) withCash() *Table {
	c := &Table{Dates: t.Dates, Columns: append(slices.Clone(t.Columns), "cash"), Rows: make([][]float64, len(t.Rows))}
	for i, row := range t.Rows {
		c.Rows[i] = append(slices.Clone(row), 0)
	}
	return c
}
