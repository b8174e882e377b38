package domain

import "strings"

// CellKind tags the type of a raw CSV cell.
type CellKind int

const (
	// CellMissing is an empty cell or an NA token.
	CellMissing CellKind = iota
	// CellText is a non-numeric value.
	CellText
	// CellNumber is a value that parses as a plain number.
	CellNumber
)

// Cell is one raw value as loaded from a CSV source. The loader decides the
// kind once; downstream code converts explicitly via the parsing package.
type Cell struct {
	Kind CellKind
	Raw  string
}

// Text returns the cell's source text, or "" for a missing cell.
func (c Cell) Text() string {
	if c.Kind == CellMissing {
		return ""
	}
	return c.Raw
}

// IsMissing reports whether the cell carries no value.
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// MissingCell returns an empty cell.
func MissingCell() Cell {
	return Cell{Kind: CellMissing}
}

// RawTable is an ordered table of rows with named, untyped columns.
// Every row has exactly len(Columns) cells.
type RawTable struct {
	Columns []string
	Rows    [][]Cell
}

// NewRawTable builds a table, padding short rows with missing cells and
// truncating long ones so that every row matches the header width.
func NewRawTable(columns []string, rows [][]Cell) *RawTable {
	width := len(columns)
	normalized := make([][]Cell, 0, len(rows))
	for _, row := range rows {
		r := make([]Cell, width)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = MissingCell()
			}
		}
		normalized = append(normalized, r)
	}
	cols := make([]string, width)
	copy(cols, columns)
	return &RawTable{Columns: cols, Rows: normalized}
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// Column returns the cells of column i in row order.
func (t *RawTable) Column(i int) []Cell {
	cells := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = row[i]
	}
	return cells
}

// NormalizeHeader strips a UTF-8 BOM, collapses runs of whitespace to a
// single space and lower-cases a column name for comparison.
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
