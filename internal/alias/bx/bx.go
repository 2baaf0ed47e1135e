// stand for bytes helper
// postgres sends every fixed-width binary value in network order, so only
// big-endian helpers live here.
package bx

import (
	"encoding/binary"
	"errors"
)

var BE = binary.BigEndian

var ErrShortBuffer = errors.New("bx: short buffer")

// --- BE: read ---
func U16(b []byte) uint16 { return BE.Uint16(b) }
func U32(b []byte) uint32 { return BE.Uint32(b) }
func U64(b []byte) uint64 { return BE.Uint64(b) }
func I16(b []byte) int16  { return int16(U16(b)) }
func I32(b []byte) int32  { return int32(U32(b)) }
func I64(b []byte) int64  { return int64(U64(b)) }

// --- BE: write ---
func PutU16(b []byte, v uint16) { BE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { BE.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { BE.PutUint64(b, v) }

// --- BE: append (used by tests and encoders building payloads) ---
func AppendU16(b []byte, v uint16) []byte { return BE.AppendUint16(b, v) }
func AppendU32(b []byte, v uint32) []byte { return BE.AppendUint32(b, v) }
func AppendU64(b []byte, v uint64) []byte { return BE.AppendUint64(b, v) }
func AppendI32(b []byte, v int32) []byte  { return AppendU32(b, uint32(v)) }

// Cursor reads consecutive big-endian fields from b and never reads past it.
type Cursor struct {
	b   []byte
	off int
}

func NewCursor(b []byte) *Cursor { return &Cursor{b: b} }

func (c *Cursor) Offset() int    { return c.off }
func (c *Cursor) Remaining() int { return len(c.b) - c.off }

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrShortBuffer
	}
	p := c.b[c.off : c.off+n]
	c.off += n
	return p, nil
}

func (c *Cursor) U32() (uint32, error) {
	p, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return U32(p), nil
}

func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) { return c.take(n) }
