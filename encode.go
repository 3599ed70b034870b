package backtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/backtest/date"
)

// This file persists series as JSONL: one JSON object per line, a date in the
// "on" property and one number per column. It stays human-readable and
// git-friendly, lines can be appended without rewriting the file.

const attrOn = "on"

// DecodeTable reads a JSONL table.
//
// When columns is empty, the columns are the keys of the first line (the
// "on" key excepted) in alphabetical order. Lines may come in any order but
// a date cannot appear twice.
func DecodeTable(r io.Reader, columns ...string) (*Table, error) {
	type row struct {
		on     date.Date
		values []float64
	}
	var rows []row
	seen := make(map[date.Date]int)

	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		jobj := make(map[string]any)
		if err := json.Unmarshal([]byte(txt), &jobj); err != nil {
			return nil, fmt.Errorf("parse error line %d: not a correct json: %w", i, err)
		}
		on, err := decodeOn(jobj)
		if err != nil {
			return nil, fmt.Errorf("parse error line %d: %w", i, err)
		}
		if prev, exists := seen[on]; exists {
			return nil, fmt.Errorf("parse error line %d: date %s already defined on line %d", i, on, prev)
		}
		seen[on] = i

		if columns == nil {
			for k := range jobj {
				if k != attrOn {
					columns = append(columns, k)
				}
			}
			slices.Sort(columns)
		}
		values := make([]float64, len(columns))
		for j, col := range columns {
			jvalue, ok := jobj[col]
			if !ok {
				return nil, fmt.Errorf("parse error line %d: missing the property %q", i, col)
			}
			v, ok := jvalue.(float64)
			if !ok {
				return nil, fmt.Errorf("parse error line %d: property %q must be of type 'number'", i, col)
			}
			values[j] = v
		}
		rows = append(rows, row{on, values})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read table: %w", err)
	}

	slices.SortFunc(rows, func(a, b row) int { return a.on.Compare(b.on) })
	t := &Table{
		Dates:   make([]date.Date, len(rows)),
		Columns: columns,
		Rows:    make([][]float64, len(rows)),
	}
	for k, r := range rows {
		t.Dates[k], t.Rows[k] = r.on, r.values
	}
	return t, nil
}

// DecodeTableFile reads a JSONL table from a file.
func DecodeTableFile(filename string, columns ...string) (*Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
	}
	defer f.Close()
	t, err := DecodeTable(f, columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// decodeOn reads the mandatory "on" date of a JSON object.
func decodeOn(jobj map[string]any) (date.Date, error) {
	jvalue, ok := jobj[attrOn]
	if !ok {
		return date.Date{}, fmt.Errorf("missing the property %q with a date", attrOn)
	}
	jstring, ok := jvalue.(string)
	if !ok {
		return date.Date{}, fmt.Errorf("property %q must be of type 'string'", attrOn)
	}
	on, err := date.Parse(jstring)
	if err != nil {
		return date.Date{}, fmt.Errorf("property %q must be a valid date: %w", attrOn, err)
	}
	return on, nil
}

// ColumnPath names a column and the JSONPath expression listing its values.
type ColumnPath struct {
	Name string
	Path string
}

// DecodeTableJSONPath reads a table out of a single JSON document.
//
// datesPath and each column path must select arrays of the same length, for
// instance "$.chart.result[0].timestamp[*]".
func DecodeTableJSONPath(r io.Reader, datesPath string, columns ...ColumnPath) (*Table, error) {
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("not a correct json: %w", err)
	}
	jdates, err := selectList(jobj, datesPath)
	if err != nil {
		return nil, err
	}
	instruments := make([]*Instrument, len(columns))
	dates := make([]date.Date, len(jdates))
	for i, jd := range jdates {
		s, ok := jd.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: date must be of type 'string'", datesPath, i)
		}
		if dates[i], err = date.Parse(s); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", datesPath, i, err)
		}
	}
	for j, col := range columns {
		jvalues, err := selectList(jobj, col.Path)
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(jvalues))
		for i, jv := range jvalues {
			v, ok := jv.(float64)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: value must be of type 'number'", col.Path, i)
			}
			values[i] = v
		}
		if instruments[j], err = NewInstrument(col.Name, dates, values); err != nil {
			return nil, err
		}
	}
	return NewTable(instruments...)
}

// selectList evaluates path on jobj and expects a list.
func selectList(jobj any, path string) ([]any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", path, err)
	}
	jlist, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("error evaluating %q: not a list but %T", path, jval)
	}
	return jlist, nil
}

// Signal is a daily price and position series, the input of a ledger.
type Signal struct {
	Dates     []date.Date
	Prices    []float64
	Positions []Position
}

// DecodeSignal reads a JSONL signal: {"on": "2024-01-02", "price": 100, "position": 1}.
func DecodeSignal(r io.Reader) (*Signal, error) {
	type jline struct {
		On       string   `json:"on"`
		Price    *float64 `json:"price"`
		Position *int     `json:"position"`
	}
	s := new(Signal)
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Bytes()
		if len(strings.TrimSpace(string(txt))) == 0 {
			continue
		}
		var jl jline
		if err := json.Unmarshal(txt, &jl); err != nil {
			return nil, fmt.Errorf("parse error line %d: %w", i, err)
		}
		on, err := date.Parse(jl.On)
		if err != nil {
			return nil, fmt.Errorf("parse error line %d: property %q must be a valid date: %w", i, attrOn, err)
		}
		if jl.Price == nil || jl.Position == nil {
			return nil, fmt.Errorf("parse error line %d: properties \"price\" and \"position\" are required", i)
		}
		if n := len(s.Dates); n > 0 && !s.Dates[n-1].Before(on) {
			return nil, fmt.Errorf("parse error line %d: date %s is not after %s", i, on, s.Dates[n-1])
		}
		s.Dates = append(s.Dates, on)
		s.Prices = append(s.Prices, *jl.Price)
		s.Positions = append(s.Positions, Position(*jl.Position))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read signal: %w", err)
	}
	return s, nil
}

// EncodeLedger writes one JSONL line per account state, amounts exact.
func EncodeLedger(w io.Writer, l *Ledger) error {
	for _, s := range l.States {
		var jw jsonObjectWriter
		jw.Append(attrOn, s.On)
		jw.Append("price", json.Number(s.Price.Decimal().String()))
		jw.Append("position", int(s.Position))
		if s.Transition.Trades() {
			jw.Append("transition", s.Transition.String())
		}
		jw.Append("cash", json.Number(s.Cash.Decimal().String()))
		jw.Append("shares", s.Shares)
		jw.Append("holdings", json.Number(s.Holdings.Decimal().String()))
		jw.Append("commissions", json.Number(s.Commissions.Decimal().String()))
		jw.Append("total", json.Number(s.Total.Decimal().String()))
		if err := writeLine(w, &jw); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRebalance writes one JSONL line per simulated day.
//
// columns names the weight slots, the residual one last.
func EncodeRebalance(w io.Writer, res *RebalanceResult, columns []string) error {
	if len(res.Weights) > 0 && len(columns) != len(res.Weights[0]) {
		return &LengthMismatchError{What: "weight columns", Want: len(res.Weights[0]), Got: len(columns)}
	}
	next := 0
	for i, on := range res.Dates {
		var jw jsonObjectWriter
		jw.Append(attrOn, on)
		jw.Float("portfolio", res.Portfolio[i])
		if res.Benchmark != nil {
			jw.Float("benchmark", res.Benchmark[i])
		}
		if next < len(res.Rebalances) && res.Rebalances[next] == i {
			jw.Append("rebalance", true)
			next++
		}
		var weights jsonObjectWriter
		for j, col := range columns {
			weights.Float(col, res.Weights[i][j])
		}
		jw.Append("weights", &weights)
		if err := writeLine(w, &jw); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, jw *jsonObjectWriter) error {
	b, err := jw.MarshalJSON()
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
