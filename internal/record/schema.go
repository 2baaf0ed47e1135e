package record

import (
	"errors"
	"fmt"
)

var ErrSchemaMismatch = errors.New("record: columns/values mismatch")

// Column is the metadata the server sends for one result column.
// DeclaredType is the server's type name (e.g. "int4", "_text").
type Column struct {
	Name         string
	DeclaredType string
	OID          uint32
}

// WireValue is one column's raw binary payload as it came off the wire.
// A nil Raw is the protocol's NULL marker (-1 length); an empty non-nil Raw
// is a real zero-length value.
type WireValue struct {
	DeclaredType string
	Raw          []byte
}

// IsNull is the null sentinel: it never looks at the payload contents.
func (v WireValue) IsNull() bool { return v.Raw == nil }

// Row is a single fetched row. Position i of Columns and Values describe the
// same field.
type Row struct {
	Columns []Column
	Values  []WireValue
}

func NewRow(cols []Column, values []WireValue) (Row, error) {
	if len(cols) != len(values) {
		return Row{}, fmt.Errorf("%w: %d columns, %d values", ErrSchemaMismatch, len(cols), len(values))
	}
	return Row{Columns: cols, Values: values}, nil
}

func (r Row) NumCols() int { return len(r.Columns) }

// IndexOf returns the position of the first column called name, or -1.
// Duplicate names are not disambiguated.
func (r Row) IndexOf(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (r Row) Names() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

// Result is what one round trip produced.
type Result struct {
	Columns      []Column
	Rows         [][]WireValue
	RowsAffected int64
}

// Row builds the i-th row of the result.
func (r Result) Row(i int) (Row, error) {
	if i < 0 || i >= len(r.Rows) {
		return Row{}, fmt.Errorf("record: row %d out of range [0,%d)", i, len(r.Rows))
	}
	return NewRow(r.Columns, r.Rows[i])
}
