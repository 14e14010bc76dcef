// Package exceldb loads a worksheet into memory-backed sequences. The
// first row names the columns; kinds are sniffed from the data below
// it. Workbooks are read once at open, queries never touch the file
// again.
package exceldb

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
	"github.com/astro-panda/queryable/pkg/sequence/memory"
)

// Config locates the worksheet to load. An empty Sheet selects the
// workbook's first sheet.
type Config struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet"`
}

// Source holds one loaded worksheet.
type Source struct {
	path  string
	sheet string
	cols  []fields.Column
	reg   *fields.Registry[sequence.Row]
	rows  []sequence.Row
	log   logging.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger replaces the no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}

// Open reads the configured worksheet into memory.
func Open(cfg *Config, opts ...Option) (*Source, error) {
	s := &Source{path: cfg.Path, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	f, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		return nil, sequence.NewErrConnectionFailed("excel", err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", cfg.Path)
	}
	s.sheet = cfg.Sheet
	if s.sheet == "" {
		s.sheet = sheets[0]
	} else if !containsString(sheets, s.sheet) {
		return nil, fmt.Errorf("sheet %s not found in %s", s.sheet, cfg.Path)
	}

	raw, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", s.sheet, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", s.sheet)
	}

	headers := raw[0]
	data := raw[1:]
	s.cols = inferColumns(headers, data)
	s.reg = fields.FromColumns(s.cols)
	s.rows = convertRows(s.cols, data)
	s.log.Debug("exceldb: loaded %s!%s: %d rows, %d columns", cfg.Path, s.sheet, len(s.rows), len(s.cols))
	return s, nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// Sheet reports the loaded worksheet name.
func (s *Source) Sheet() string { return s.sheet }

// Columns exposes the inferred column metadata.
func (s *Source) Columns() []fields.Column { return s.cols }

// Registry exposes the field registry inferred from the sheet.
func (s *Source) Registry() *fields.Registry[sequence.Row] { return s.reg }

// Len reports the number of loaded rows.
func (s *Source) Len() int { return len(s.rows) }

// Rows builds a sequence over the loaded rows in sheet order.
func (s *Source) Rows() sequence.Sequence[sequence.Row] {
	return memory.FromSlice(s.rows)
}

// sampleSize bounds how many data rows kind inference examines.
const sampleSize = 100

// inferColumns names columns from the header row and picks each
// column's kind by majority vote over the sampled cells.
func inferColumns(headers []string, data [][]string) []fields.Column {
	cols := make([]fields.Column, len(headers))
	for j, header := range headers {
		cols[j] = fields.Column{Name: header, Kind: fields.KindString, Nullable: true}
	}

	limit := len(data)
	if limit > sampleSize {
		limit = sampleSize
	}

	for j := range cols {
		counts := map[fields.Kind]int{}
		for i := 0; i < limit; i++ {
			if j >= len(data[i]) || data[i][j] == "" {
				continue
			}
			counts[sniffKind(data[i][j])]++
		}
		// Fixed vote order, most specific kind first, so a tie always
		// resolves the same way across loads.
		best := fields.KindString
		bestCount := 0
		for _, k := range []fields.Kind{fields.KindBool, fields.KindInt, fields.KindFloat, fields.KindString} {
			if n := counts[k]; n > bestCount {
				best, bestCount = k, n
			}
		}
		cols[j].Kind = best
	}
	return cols
}

// sniffKind classifies one cell text.
func sniffKind(value string) fields.Kind {
	if value == "true" || value == "false" {
		return fields.KindBool
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return fields.KindInt
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return fields.KindFloat
	}
	return fields.KindString
}

// convertRows parses cell text per the inferred column kinds. Empty
// cells become nil; cells that refuse to parse stay strings.
func convertRows(cols []fields.Column, data [][]string) []sequence.Row {
	rows := make([]sequence.Row, len(data))
	for i, cells := range data {
		row := make(sequence.Row, len(cols))
		for j, col := range cols {
			var cell string
			if j < len(cells) {
				cell = cells[j]
			}
			row[col.Name] = parseCell(cell, col.Kind)
		}
		rows[i] = row
	}
	return rows
}

func parseCell(value string, kind fields.Kind) interface{} {
	if value == "" {
		return nil
	}
	switch kind {
	case fields.KindInt:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case fields.KindFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case fields.KindBool:
		if value == "true" {
			return true
		}
		if value == "false" {
			return false
		}
	}
	return value
}
