// Package grid provides a read-only, 0-indexed view over a spreadsheet's
// raw cell values with guarded numeric coercion.
package grid

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WarnFunc is invoked when a non-empty cell cannot be coerced to a number.
// The cell still resolves to zero; the hook only makes the loss observable.
type WarnFunc func(row, col int, raw string)

// Options configures grid loading.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	Warn       WarnFunc
}

// Grid is an immutable rectangular view of one sheet's cell values.
type Grid struct {
	rows [][]string
	warn WarnFunc
}

// Load reads one sheet of an XLSX file into a Grid.
func Load(path string, opts Options) (*Grid, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "grid: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows[i] = cells
	}

	return &Grid{rows: rows, warn: opts.Warn}, nil
}

// New builds a Grid from in-memory rows. Used by tests and the inspect path.
func New(rows [][]string, warn WarnFunc) *Grid {
	return &Grid{rows: rows, warn: warn}
}

// Rows returns the number of rows in the grid.
func (g *Grid) Rows() int { return len(g.rows) }

// String returns the trimmed text value at (row, col), or "" when the
// address lies outside the sheet.
func (g *Grid) String(row, col int) string {
	if row < 0 || col < 0 || row >= len(g.rows) || col >= len(g.rows[row]) {
		return ""
	}
	return strings.TrimSpace(g.rows[row][col])
}

// Float returns the numeric value at (row, col). Empty and out-of-range
// cells resolve to 0. Non-numeric text also resolves to 0 but fires the
// warn hook, so bad data stays visible without failing the shift.
func (g *Grid) Float(row, col int) float64 {
	s := g.String(row, col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if g.warn != nil {
			g.warn(row, col, s)
		}
		return 0
	}
	return v
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("grid: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("grid: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}
