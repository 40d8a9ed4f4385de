// Package dataset holds the in-memory tabular model shared by the loader,
// the cleaning pipeline and the analyzer.
package dataset

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type attached to a column at load time.
type ColumnType int

const (
	// Numeric columns hold float values (or nulls) and are subject to outlier fencing.
	Numeric ColumnType = iota
	// Categorical columns hold text values (or nulls) and get frequency tables.
	Categorical
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// MarshalText renders the type as "numeric" or "categorical".
func (t ColumnType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses "numeric" or "categorical".
func (t *ColumnType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "numeric":
		*t = Numeric
	case "categorical":
		*t = Categorical
	default:
		return fmt.Errorf("unknown column type %q", string(b))
	}
	return nil
}

// Column describes one column of a dataset.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Row is one record aligned to the owning dataset's column order.
// Rows are treated as immutable once a dataset is built.
type Row []Value

// HasNull reports whether any value in the row is null.
func (r Row) HasNull() bool {
	for _, v := range r {
		if v.IsNull() {
			return true
		}
	}
	return false
}

// Dataset is an ordered sequence of rows sharing one column layout.
// Stages never mutate a Dataset in place; they build new ones.
type Dataset struct {
	Columns []Column `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// New builds a dataset from columns and rows. Rows shorter than the column
// list are padded with nulls; longer rows are truncated.
func New(cols []Column, rows []Row) *Dataset {
	c := make([]Column, len(cols))
	copy(c, cols)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, normalizeRow(r, len(c)))
	}
	return &Dataset{Columns: c, Rows: out}
}

// Empty returns a dataset with the given columns and no rows.
func Empty(cols []Column) *Dataset {
	c := make([]Column, len(cols))
	copy(c, cols)
	return &Dataset{Columns: c, Rows: []Row{}}
}

func normalizeRow(r Row, width int) Row {
	if len(r) == width {
		return r
	}
	out := make(Row, width)
	n := copy(out, r)
	for i := n; i < width; i++ {
		out[i] = Null()
	}
	return out
}

// Len returns the number of rows; a nil dataset has zero rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// WithRows returns a new dataset sharing this dataset's columns with the given rows.
func (d *Dataset) WithRows(rows []Row) *Dataset {
	out := Empty(d.Columns)
	if rows != nil {
		out.Rows = rows
	}
	return out
}

// Append returns a new dataset holding d's rows followed by other's rows.
// Both datasets must share the same column layout.
func (d *Dataset) Append(other *Dataset) *Dataset {
	rows := make([]Row, 0, d.Len()+other.Len())
	rows = append(rows, d.Rows...)
	if other != nil {
		rows = append(rows, other.Rows...)
	}
	return d.WithRows(rows)
}

// Head returns a dataset with at most n leading rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.Len() {
		n = d.Len()
	}
	rows := make([]Row, n)
	copy(rows, d.Rows[:n])
	return d.WithRows(rows)
}

// ColumnIndex returns the index of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnsOfType returns indices of columns with the given type, in column order.
func (d *Dataset) ColumnsOfType(t ColumnType) []int {
	var idx []int
	for i, c := range d.Columns {
		if c.Type == t {
			idx = append(idx, i)
		}
	}
	return idx
}

// NumericColumns returns the indices of numeric columns in column order.
func (d *Dataset) NumericColumns() []int { return d.ColumnsOfType(Numeric) }

// CategoricalColumns returns the indices of categorical columns in column order.
func (d *Dataset) CategoricalColumns() []int { return d.ColumnsOfType(Categorical) }

// Floats returns the non-null numeric values of column idx in row order.
func (d *Dataset) Floats(idx int) []float64 {
	out := make([]float64, 0, d.Len())
	for _, r := range d.Rows {
		if f, ok := r[idx].Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Texts returns the non-null text values of column idx in row order.
func (d *Dataset) Texts(idx int) []string {
	out := make([]string, 0, d.Len())
	for _, r := range d.Rows {
		if s, ok := r[idx].Text(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Records returns the rows rendered as strings, nulls as "", for tabular display.
func (d *Dataset) Records() [][]string {
	out := make([][]string, 0, d.Len())
	for _, r := range d.Rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = v.String()
		}
		out = append(out, rec)
	}
	return out
}
