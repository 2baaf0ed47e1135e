package pggateway

import (
	"fmt"
	"math"

	"github.com/tuannm99/pggateway/internal/decode"
	"github.com/tuannm99/pggateway/internal/record"
)

// Row is one fetched row. Fields are decoded on every access; nothing is
// cached, so repeated reads of a field return equal values.
type Row struct {
	rec record.Row
	dec *decode.Decoder
}

// NewRow builds a Row outside of a query, e.g. on the client side of a
// gateway connection. A nil dec uses a default decoder.
func NewRow(cols []Column, values []WireValue, dec *Decoder) (*Row, error) {
	rec, err := record.NewRow(cols, values)
	if err != nil {
		return nil, err
	}
	if dec == nil {
		dec = decode.New(decode.Config{})
	}
	return &Row{rec: rec, dec: dec}, nil
}

// Len is the number of fields.
func (r *Row) Len() int { return r.rec.NumCols() }

// Keys returns the column names in server order, duplicates included.
func (r *Row) Keys() []string { return r.rec.Names() }

// Columns returns a copy of the column metadata in server order.
func (r *Row) Columns() []Column {
	return append([]Column(nil), r.rec.Columns...)
}

// Raw returns the i-th field as it came off the wire.
func (r *Row) Raw(i int) (WireValue, error) {
	if i < 0 || i >= r.Len() {
		return WireValue{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, r.Len())
	}
	return r.rec.Values[i], nil
}

// Get decodes the field at position i.
func (r *Row) Get(i int) (any, error) {
	v, err := r.Raw(i)
	if err != nil {
		return nil, err
	}
	return r.dec.Decode(v)
}

// GetByName decodes the first field called name.
func (r *Row) GetByName(name string) (any, error) {
	i := r.rec.IndexOf(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: column %q", ErrNotFound, name)
	}
	return r.dec.Decode(r.rec.Values[i])
}

// Index looks a field up by a host-supplied key: any integer kind is a
// position, a string is a column name.
func (r *Row) Index(key any) (any, error) {
	switch k := key.(type) {
	case string:
		return r.GetByName(k)
	case int:
		return r.Get(k)
	case int8:
		return r.Get(int(k))
	case int16:
		return r.Get(int(k))
	case int32:
		return r.Get(int(k))
	case int64:
		if k < math.MinInt || k > math.MaxInt {
			return nil, fmt.Errorf("%w: %d", ErrOutOfRange, k)
		}
		return r.Get(int(k))
	case uint:
		return r.getUnsigned(uint64(k))
	case uint8:
		return r.Get(int(k))
	case uint16:
		return r.Get(int(k))
	case uint32:
		return r.getUnsigned(uint64(k))
	case uint64:
		return r.getUnsigned(k)
	default:
		return nil, fmt.Errorf("%w: key of type %T", ErrNotFound, key)
	}
}

func (r *Row) getUnsigned(k uint64) (any, error) {
	if k > math.MaxInt {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, k)
	}
	return r.Get(int(k))
}

// Values decodes every field in order.
func (r *Row) Values() ([]any, error) {
	out := make([]any, r.Len())
	for i := range out {
		v, err := r.Get(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Map decodes the row into name -> value. With duplicate names the first
// column wins, the same as GetByName.
func (r *Row) Map() (map[string]any, error) {
	out := make(map[string]any, r.Len())
	for i, c := range r.rec.Columns {
		if _, ok := out[c.Name]; ok {
			continue
		}
		v, err := r.Get(i)
		if err != nil {
			return nil, err
		}
		out[c.Name] = v
	}
	return out, nil
}
