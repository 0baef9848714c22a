// Package table provides an immutable columnar table used by every pipeline
// stage. A Table has named, typed columns of equal length; operations such as
// filters, joins, and grouped counts produce new tables rather than mutating
// in place, so stages never share mutable state.
package table

import (
	"fmt"
	"strconv"
)

// ColumnType represents the data type of a column
type ColumnType int

const (
	ColumnTypeString ColumnType = iota
	ColumnTypeInt
	ColumnTypeFloat
	ColumnTypeBool
)

// String returns the type name used in error messages
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeString:
		return "string"
	case ColumnTypeInt:
		return "int"
	case ColumnTypeFloat:
		return "float"
	case ColumnTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Column is a named, typed vector of values with optional null validity.
// Exactly one of the value slices is populated, matching Type.
type Column struct {
	name    string
	typ     ColumnType
	strings []string
	ints    []int64
	floats  []float64
	bools   []bool
	// valid marks non-null rows; nil means every row is valid
	valid []bool
}

// NewStringColumn creates a string column
func NewStringColumn(name string, values []string) *Column {
	return &Column{name: name, typ: ColumnTypeString, strings: values}
}

// NewIntColumn creates an int64 column
func NewIntColumn(name string, values []int64) *Column {
	return &Column{name: name, typ: ColumnTypeInt, ints: values}
}

// NewFloatColumn creates a float64 column
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{name: name, typ: ColumnTypeFloat, floats: values}
}

// NewBoolColumn creates a bool column
func NewBoolColumn(name string, values []bool) *Column {
	return &Column{name: name, typ: ColumnTypeBool, bools: values}
}

// WithValidity returns the column with an explicit validity mask.
// The mask length must match the column length.
func (c *Column) WithValidity(valid []bool) *Column {
	clone := *c
	clone.valid = valid
	return &clone
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Type returns the column type
func (c *Column) Type() ColumnType { return c.typ }

// Len returns the number of rows in the column
func (c *Column) Len() int {
	switch c.typ {
	case ColumnTypeString:
		return len(c.strings)
	case ColumnTypeInt:
		return len(c.ints)
	case ColumnTypeFloat:
		return len(c.floats)
	case ColumnTypeBool:
		return len(c.bools)
	default:
		return 0
	}
}

// IsNull reports whether row i holds no value
func (c *Column) IsNull(i int) bool {
	return c.valid != nil && !c.valid[i]
}

// StringAt returns the string value at row i; only valid for string columns
func (c *Column) StringAt(i int) string { return c.strings[i] }

// IntAt returns the int value at row i; only valid for int columns
func (c *Column) IntAt(i int) int64 { return c.ints[i] }

// FloatAt returns the float value at row i; only valid for float columns
func (c *Column) FloatAt(i int) float64 { return c.floats[i] }

// BoolAt returns the bool value at row i; only valid for bool columns
func (c *Column) BoolAt(i int) bool { return c.bools[i] }

// Render returns the value at row i rendered as text, empty for nulls.
// This is the representation used for CSV output and for join/group keys.
func (c *Column) Render(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.typ {
	case ColumnTypeString:
		return c.strings[i]
	case ColumnTypeInt:
		return strconv.FormatInt(c.ints[i], 10)
	case ColumnTypeFloat:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	case ColumnTypeBool:
		return strconv.FormatBool(c.bools[i])
	default:
		return ""
	}
}

// take builds a new column holding the given rows in order
func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, typ: c.typ}
	if c.valid != nil {
		out.valid = make([]bool, 0, len(rows))
		for _, i := range rows {
			out.valid = append(out.valid, c.valid[i])
		}
	}
	switch c.typ {
	case ColumnTypeString:
		out.strings = make([]string, 0, len(rows))
		for _, i := range rows {
			out.strings = append(out.strings, c.strings[i])
		}
	case ColumnTypeInt:
		out.ints = make([]int64, 0, len(rows))
		for _, i := range rows {
			out.ints = append(out.ints, c.ints[i])
		}
	case ColumnTypeFloat:
		out.floats = make([]float64, 0, len(rows))
		for _, i := range rows {
			out.floats = append(out.floats, c.floats[i])
		}
	case ColumnTypeBool:
		out.bools = make([]bool, 0, len(rows))
		for _, i := range rows {
			out.bools = append(out.bools, c.bools[i])
		}
	}
	return out
}

// append extends the column with every row of other; types must already match
func (c *Column) append(other *Column) {
	n := c.Len()
	m := other.Len()
	if c.valid != nil || other.valid != nil {
		merged := make([]bool, 0, n+m)
		for i := 0; i < n; i++ {
			merged = append(merged, !c.IsNull(i))
		}
		for i := 0; i < m; i++ {
			merged = append(merged, !other.IsNull(i))
		}
		c.valid = merged
	}
	switch c.typ {
	case ColumnTypeString:
		c.strings = append(c.strings, other.strings...)
	case ColumnTypeInt:
		c.ints = append(c.ints, other.ints...)
	case ColumnTypeFloat:
		c.floats = append(c.floats, other.floats...)
	case ColumnTypeBool:
		c.bools = append(c.bools, other.bools...)
	}
}

// Table is an immutable collection of equal-length columns
type Table struct {
	cols   []*Column
	byName map[string]int
}

// New creates a table from columns. Columns must have unique names and
// identical lengths.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:   cols,
		byName: make(map[string]int, len(cols)),
	}
	rows := -1
	for i, col := range cols {
		if _, exists := t.byName[col.Name()]; exists {
			return nil, fmt.Errorf("duplicate column %q", col.Name())
		}
		t.byName[col.Name()] = i
		if rows == -1 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name(), col.Len(), rows)
		}
	}
	return t, nil
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the number of columns
func (t *Table) NumCols() int { return len(t.cols) }

// Column returns the named column, or nil when absent
func (t *Table) Column(name string) *Column {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

// HasColumn reports whether the table carries the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// ColumnNames returns the column names in declaration order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, col := range t.cols {
		names[i] = col.Name()
	}
	return names
}

// Columns returns the columns in declaration order
func (t *Table) Columns() []*Column { return t.cols }

// Take builds a new table holding the given rows in order
func (t *Table) Take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, col := range t.cols {
		cols[i] = col.take(rows)
	}
	out, _ := New(cols...)
	return out
}

// FilterEqual retains rows whose rendered value in the named column equals
// value. Null rows never match.
func (t *Table) FilterEqual(column, value string) (*Table, error) {
	col := t.Column(column)
	if col == nil {
		return nil, fmt.Errorf("column %q not found", column)
	}
	rows := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) && col.Render(i) == value {
			rows = append(rows, i)
		}
	}
	return t.Take(rows), nil
}

// FilterIn retains rows whose rendered value in the named column is one of
// values. Comparison is exact and case-sensitive; null rows never match.
func (t *Table) FilterIn(column string, values []string) (*Table, error) {
	col := t.Column(column)
	if col == nil {
		return nil, fmt.Errorf("column %q not found", column)
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	rows := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		if _, ok := allowed[col.Render(i)]; ok {
			rows = append(rows, i)
		}
	}
	return t.Take(rows), nil
}

// Concat appends every row of other to a copy of t. The schemas (column
// names, order, and types) must match exactly.
func (t *Table) Concat(other *Table) (*Table, error) {
	if t.NumCols() != other.NumCols() {
		return nil, fmt.Errorf("schema mismatch: %d columns vs %d", t.NumCols(), other.NumCols())
	}
	cols := make([]*Column, len(t.cols))
	for i, col := range t.cols {
		oc := other.cols[i]
		if oc.Name() != col.Name() || oc.Type() != col.Type() {
			return nil, fmt.Errorf("schema mismatch: column %d is %s %s, expected %s %s",
				i, oc.Type(), oc.Name(), col.Type(), col.Name())
		}
		merged := col.take(identity(col.Len()))
		merged.append(oc)
		cols[i] = merged
	}
	return New(cols...)
}

func identity(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
