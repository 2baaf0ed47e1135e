package decode

import (
	"errors"

	"github.com/tuannm99/pggateway/internal/alias/bx"
)

// maxDims is postgres' MAXDIM.
const maxDims = 6

// ArrayStrategy decodes the binary array format:
//
//	int32 ndim | int32 has-null flag | uint32 element oid
//	ndim x (int32 length, int32 lower bound)
//	per element: int32 length (-1 = NULL) + payload
//
// One-dimensional arrays decode to []any. Each extra dimension adds a level
// of nesting. Element order is the wire order.
type ArrayStrategy struct {
	Elem Strategy
}

func (a ArrayStrategy) Decode(d *Decoder, raw []byte) (any, error) {
	c := bx.NewCursor(raw)

	ndim, err := c.I32()
	if err != nil {
		return nil, arrayFraming(err)
	}
	if ndim < 0 || ndim > maxDims {
		return nil, malformed("array has %d dimensions", ndim)
	}

	flags, err := c.I32()
	if err != nil {
		return nil, arrayFraming(err)
	}
	if flags&^1 != 0 {
		return nil, malformed("array flags %#x", flags)
	}

	// element oid; the declared type already named the element
	if _, err := c.U32(); err != nil {
		return nil, arrayFraming(err)
	}

	dims := make([]int, ndim)
	total := 0
	if ndim > 0 {
		total = 1
	}
	for i := range dims {
		n, err := c.I32()
		if err != nil {
			return nil, arrayFraming(err)
		}
		if _, err := c.I32(); err != nil { // lower bound
			return nil, arrayFraming(err)
		}
		if n < 0 {
			return nil, malformed("array dimension %d has length %d", i, n)
		}
		dims[i] = int(n)
		total *= int(n)
		// every element costs at least its 4-byte length word
		if total > c.Remaining()/4 {
			return nil, malformed("array claims %d elements in %d bytes", total, len(raw))
		}
	}

	elems := make([]any, total)
	for i := range elems {
		n, err := c.I32()
		if err != nil {
			return nil, arrayFraming(err)
		}
		if n == -1 {
			continue
		}
		if n < -1 {
			return nil, malformed("array element %d has length %d", i, n)
		}
		p, err := c.Bytes(int(n))
		if err != nil {
			return nil, arrayFraming(err)
		}
		v, err := a.Elem.Decode(d, p)
		if err != nil {
			return nil, errors.Join(malformed("array element %d", i), err)
		}
		elems[i] = v
	}

	if c.Remaining() != 0 {
		return nil, malformed("array has %d trailing bytes", c.Remaining())
	}
	return nest(elems, dims), nil
}

func arrayFraming(err error) error {
	return malformed("array framing: %v", err)
}

// nest splits a flat element list into one []any level per dimension.
func nest(flat []any, dims []int) []any {
	if len(dims) <= 1 {
		return flat
	}
	n := dims[0]
	step := 0
	if n > 0 {
		step = len(flat) / n
	}
	out := make([]any, n)
	for i := range out {
		out[i] = nest(flat[i*step:(i+1)*step], dims[1:])
	}
	return out
}
