package excel

import (
	"math"
	"strconv"
	"strings"

	"gocausal/internal/errors"
)

// SeriesData is a spreadsheet held column-wise as raw strings
type SeriesData struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, padded to len(Headers)

	missing map[string]bool
}

// Len is the number of data rows
func (d *SeriesData) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether the header row names the column
func (d *SeriesData) HasColumn(name string) bool {
	return d.columnIndex(name) >= 0
}

// Column parses a column into floats. Missing or unparseable cells become NaN
// so the series keeps its row alignment.
func (d *SeriesData) Column(name string) ([]float64, error) {
	idx := d.columnIndex(name)
	if idx < 0 {
		return nil, errors.NotFound("column " + strconv.Quote(name))
	}

	values := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = d.parseCell(row[idx])
	}
	return values, nil
}

// MissingCount is the number of cells in a column that did not parse as a number
func (d *SeriesData) MissingCount(name string) int {
	values, err := d.Column(name)
	if err != nil {
		return 0
	}
	count := 0
	for _, v := range values {
		if math.IsNaN(v) {
			count++
		}
	}
	return count
}

func (d *SeriesData) columnIndex(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	for i, h := range d.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func (d *SeriesData) parseCell(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if d.missing[strings.ToLower(cell)] {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
