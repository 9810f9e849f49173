// Package output reads simulator-native result artifacts into the unified
// result shape: a column-oriented time-series store (RSM run-summary tables
// or CSV exports) plus a human-readable run report scanned for convergence
// markers.
package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/resbridge/resbridge/sim"
)

// columns accumulates one named series per output column while rows stream
// in. The TIME column is kept separately as the shared grid.
type columns struct {
	names []string // canonical vector names, TIME excluded
	times []float64
	data  [][]float64
}

func (c *columns) addRow(time float64, vals []float64) {
	c.times = append(c.times, time)
	for i, v := range vals {
		c.data[i] = append(c.data[i], v)
	}
}

func (c *columns) result() *sim.UnifiedResult {
	res := sim.NewUnifiedResult()
	for i, name := range c.names {
		v := sim.Vector{Times: c.times, Values: c.data[i]}
		if sim.IsWellVector(name) {
			res.Well[name] = v
		} else {
			res.Field[name] = v
		}
	}
	return res
}

// ReadRSMFile reads a run-summary table from path.
func ReadRSMFile(path string) (*sim.UnifiedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run summary: %w", err)
	}
	defer f.Close()
	return ReadRSM(path, f)
}

// ReadRSM reads an RSM-style run summary: page furniture, then a header
// block (mnemonic row, unit row, and a well-name row when any well-level
// mnemonic is present), then whitespace-separated numeric rows with TIME in
// the first column. Well names map positionally onto the W-prefixed columns
// in order. Truncated or ragged rows fail with a ParseError naming the
// artifact and line.
func ReadRSM(src string, r io.Reader) (*sim.UnifiedResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var mnemonics []string
	num := 0
	for sc.Scan() {
		num++
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "TIME" {
			mnemonics = fields[1:]
			break
		}
	}
	if mnemonics == nil {
		return nil, &sim.ParseError{Source: src, Line: num, Msg: "no TIME header found"}
	}
	headerLine := num

	// Unit row: present in every engine's summary, discarded.
	if !sc.Scan() {
		return nil, &sim.ParseError{Source: src, Line: num, Msg: "truncated header: missing unit row"}
	}
	num++

	wellCols := 0
	for _, m := range mnemonics {
		if strings.HasPrefix(m, "W") {
			wellCols++
		}
	}
	names := make([]string, len(mnemonics))
	copy(names, mnemonics)
	if wellCols > 0 {
		if !sc.Scan() {
			return nil, &sim.ParseError{Source: src, Line: num, Msg: "truncated header: missing well-name row"}
		}
		num++
		wells := strings.Fields(sc.Text())
		if len(wells) != wellCols {
			return nil, &sim.ParseError{Source: src, Line: num,
				Msg: fmt.Sprintf("well-name row has %d names, header has %d well columns", len(wells), wellCols)}
		}
		wi := 0
		for i, m := range mnemonics {
			if strings.HasPrefix(m, "W") {
				names[i] = m + ":" + wells[wi]
				wi++
			}
		}
	}

	warnDuplicateColumns(src, names)

	cols := &columns{names: names, data: make([][]float64, len(names))}
	for sc.Scan() {
		num++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
			// Page separators and rule lines between data blocks.
			logrus.Debugf("rsm %s: skipping non-numeric line %d", src, num)
			continue
		}
		if len(fields) != len(names)+1 {
			return nil, &sim.ParseError{Source: src, Line: num,
				Msg: fmt.Sprintf("row has %d values, header declares %d columns", len(fields), len(names)+1)}
		}
		vals, err := rowFloats(src, num, fields)
		if err != nil {
			return nil, err
		}
		cols.addRow(vals[0], vals[1:])
	}
	if err := sc.Err(); err != nil {
		return nil, &sim.ParseError{Source: src, Line: num, Msg: err.Error()}
	}
	if len(cols.times) == 0 {
		return nil, &sim.ParseError{Source: src, Line: headerLine, Msg: "no data rows after header"}
	}
	return cols.result(), nil
}

// ReadCSVFile reads a CSV time-series export from path.
func ReadCSVFile(path string) (*sim.UnifiedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv export: %w", err)
	}
	defer f.Close()
	return ReadCSV(path, f)
}

// ReadCSV reads a CSV export: a header row of canonical vector names with
// TIME first (well vectors in "WBHP:PROD" form), then numeric rows.
func ReadCSV(src string, r io.Reader) (*sim.UnifiedResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &sim.ParseError{Source: src, Line: 1, Msg: "missing header row"}
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "TIME" {
		return nil, &sim.ParseError{Source: src, Line: 1, Msg: "header must start with TIME"}
	}
	names := make([]string, len(header)-1)
	for i, h := range header[1:] {
		names[i] = strings.TrimSpace(h)
	}
	warnDuplicateColumns(src, names)

	cols := &columns{names: names, data: make([][]float64, len(names))}
	num := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		num++
		if err != nil {
			return nil, &sim.ParseError{Source: src, Line: num, Msg: err.Error()}
		}
		vals, err := rowFloats(src, num, record)
		if err != nil {
			return nil, err
		}
		cols.addRow(vals[0], vals[1:])
	}
	if len(cols.times) == 0 {
		return nil, &sim.ParseError{Source: src, Line: num, Msg: "no data rows after header"}
	}
	return cols.result(), nil
}

// warnDuplicateColumns flags columns that resolve to the same vector name.
// The result store is keyed by name, so the rightmost duplicate wins; that
// must not happen silently.
func warnDuplicateColumns(src string, names []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			logrus.Warnf("%s: duplicate column %s; rightmost values win", src, name)
		}
		seen[name] = true
	}
}

func rowFloats(src string, line int, fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, &sim.ParseError{Source: src, Line: line, Msg: "bad number " + strconv.Quote(f)}
		}
		vals[i] = v
	}
	return vals, nil
}
