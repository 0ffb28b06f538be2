package table

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ColumnKind classifies a whole column for cleaning and encoding.
type ColumnKind string

const (
	Numeric     ColumnKind = "numeric"
	Categorical ColumnKind = "categorical"
	Empty       ColumnKind = "empty"
)

// Table is an in-memory record table: ordered named columns and ordered rows.
// Stages never mutate a table they receive; they return a new one.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// New creates an empty table with the given column names.
func New(cols []string) (*Table, error) {
	t := &Table{cols: make([]string, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		name := strings.TrimSpace(c)
		if name == "" {
			return nil, eris.Wrapf(ErrParse, "table: column %d has an empty name", i+1)
		}
		if _, dup := t.index[name]; dup {
			return nil, eris.Wrapf(ErrParse, "table: duplicate column %q", name)
		}
		t.cols[i] = name
		t.index[name] = i
	}
	return t, nil
}

// MustNew is New for literal column lists known to be valid.
func MustNew(cols ...string) *Table {
	t, err := New(cols)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. Short rows are padded with Missing; long rows are rejected.
func (t *Table) Append(row ...Value) error {
	if len(row) > len(t.cols) {
		return eris.Wrapf(ErrParse, "table: row has %d cells, header has %d", len(row), len(t.cols))
	}
	r := make([]Value, len(t.cols))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

func (t *Table) NumRows() int { return len(t.rows) }
func (t *Table) NumCols() int { return len(t.cols) }

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Require fails with ErrMissingColumn naming every absent column.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrMissingColumn, "table: %s", strings.Join(missing, ", "))
	}
	return nil
}

// At returns the cell at row i, column j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value { return append([]Value(nil), t.rows[i]...) }

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "table: %s", name)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats returns the named column as float64. Any missing or text cell fails
// with ErrNotNumeric.
func (t *Table) Floats(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "table: %s", name)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		f, ok := r[j].Float()
		if !ok {
			return nil, eris.Wrapf(ErrNotNumeric, "table: %s row %d is %s", name, i+1, r[j].Kind())
		}
		out[i] = f
	}
	return out, nil
}

// Matrix builds a row-major feature matrix from the named numeric columns.
func (t *Table) Matrix(names ...string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for k, n := range names {
		c, err := t.Floats(n)
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	X := make([][]float64, len(t.rows))
	for i := range X {
		X[i] = make([]float64, len(names))
		for k := range names {
			X[i][k] = cols[k][i]
		}
	}
	return X, nil
}

// Kind infers the column kind: Numeric if every non-missing cell is a number.
func (t *Table) Kind(name string) (ColumnKind, error) {
	j, ok := t.index[name]
	if !ok {
		return "", eris.Wrapf(ErrMissingColumn, "table: %s", name)
	}
	kind := Empty
	for _, r := range t.rows {
		switch r[j].Kind() {
		case Text:
			return Categorical, nil
		case Number:
			kind = Numeric
		}
	}
	return kind, nil
}

// MissingCount returns the number of missing cells in the named column.
func (t *Table) MissingCount(name string) int {
	j, ok := t.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if r[j].IsMissing() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{cols: t.Columns(), index: make(map[string]int, len(t.index)), rows: make([][]Value, len(t.rows))}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, r := range t.rows {
		c.rows[i] = append([]Value(nil), r...)
	}
	return c
}

// Set replaces one cell in place. Only for tables the caller owns.
func (t *Table) Set(i, j int, v Value) { t.rows[i][j] = v }

// WithColumn returns a copy with the named column replaced, or appended when absent.
func (t *Table) WithColumn(name string, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, eris.Errorf("table: column %q has %d values, table has %d rows", name, len(vals), len(t.rows))
	}
	c := t.Clone()
	j, ok := c.index[name]
	if !ok {
		j = len(c.cols)
		c.cols = append(c.cols, name)
		c.index[name] = j
		for i := range c.rows {
			c.rows[i] = append(c.rows[i], Value{})
		}
	}
	for i, v := range vals {
		c.rows[i][j] = v
	}
	return c, nil
}

// Filter returns a copy holding only the rows for which keep returns true.
func (t *Table) Filter(keep func(i int, row []Value) bool) *Table {
	c := &Table{cols: t.Columns(), index: make(map[string]int, len(t.index))}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, r := range t.rows {
		if keep(i, r) {
			c.rows = append(c.rows, append([]Value(nil), r...))
		}
	}
	return c
}

// RowKey is a canonical representation of row i used for exact-duplicate detection.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for j, v := range t.rows[i] {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(v.key())
	}
	return b.String()
}

// ValueKey is the canonical form of a single cell, used for frequency counts.
func ValueKey(v Value) string { return v.key() }

// Equal reports whether two tables have the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.cols) != len(o.cols) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.cols {
		if t.cols[i] != o.cols[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !t.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}
