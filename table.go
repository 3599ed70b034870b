package backtest

import (
	"fmt"
	"slices"

	"github.com/etnz/backtest/date"
)

// Instrument is a symbol and its date-indexed series (prices or returns).
type Instrument struct {
	Symbol string
	Series date.History[float64]
}

// NewInstrument creates an instrument from parallel dates and values.
func NewInstrument(symbol string, dates []date.Date, values []float64) (*Instrument, error) {
	if len(dates) != len(values) {
		return nil, &LengthMismatchError{What: symbol + " values", Want: len(dates), Got: len(values)}
	}
	ins := &Instrument{Symbol: symbol}
	for i, on := range dates {
		ins.Series.Append(on, values[i])
	}
	return ins, nil
}

// Table is a date-indexed matrix: one row per day, one column per instrument.
//
// Dates are strictly ascending. A Table is read-only once built.
type Table struct {
	Dates   []date.Date
	Columns []string
	Rows    [][]float64
}

// NewTable aligns instruments into a table.
//
// Every instrument must have exactly the dates of the first one.
func NewTable(instruments ...*Instrument) (*Table, error) {
	if len(instruments) == 0 {
		return nil, configErrorf("instruments", "at least one instrument is required")
	}
	dates := instruments[0].Series.Dates()
	t := &Table{
		Dates:   dates,
		Columns: make([]string, len(instruments)),
		Rows:    make([][]float64, len(dates)),
	}
	for i := range t.Rows {
		t.Rows[i] = make([]float64, len(instruments))
	}
	for j, ins := range instruments {
		t.Columns[j] = ins.Symbol
		if ins.Series.Len() != len(dates) {
			return nil, &LengthMismatchError{What: ins.Symbol + " dates", Want: len(dates), Got: ins.Series.Len()}
		}
		for i, on := range dates {
			v, ok := ins.Series.Get(on)
			if !ok {
				return nil, fmt.Errorf("%s has no value on %s: %w", ins.Symbol, on,
					&LengthMismatchError{What: ins.Symbol + " dates", Want: len(dates), Got: ins.Series.Len()})
			}
			t.Rows[i][j] = v
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Dates) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Columns) }

// Column returns the index of a column by name.
func (t *Table) Column(name string) (int, bool) {
	i := slices.Index(t.Columns, name)
	return i, i >= 0
}

// Search returns the index of the first row on or after 'on'.
// It returns Len() if there is none.
func (t *Table) Search(on date.Date) int {
	i, _ := slices.BinarySearchFunc(t.Dates, on, date.Date.Compare)
	return i
}

// Index returns the row index of 'on' if present.
func (t *Table) Index(on date.Date) (int, bool) {
	return slices.BinarySearchFunc(t.Dates, on, date.Date.Compare)
}

// Series returns a copy of the column j.
func (t *Table) Series(j int) []float64 {
	s := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		s[i] = row[j]
	}
	return s
}

// Validate checks the table structure: ascending dates and rectangular rows.
func (t *Table) Validate() error {
	if len(t.Rows) != len(t.Dates) {
		return &LengthMismatchError{What: "table rows", Want: len(t.Dates), Got: len(t.Rows)}
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %s: %w", t.Dates[i], &LengthMismatchError{What: "table columns", Want: len(t.Columns), Got: len(row)})
		}
		if i > 0 && !t.Dates[i-1].Before(t.Dates[i]) {
			return configErrorf("table", "dates are not strictly ascending at %s", t.Dates[i])
		}
	}
	return nil
}
