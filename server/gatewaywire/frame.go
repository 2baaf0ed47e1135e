package gatewaywire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tuannm99/pggateway/internal/alias/bx"
)

const (
	// MaxFrameSize limits memory usage on malformed/hostile input.
	MaxFrameSize = 8 << 20 // 8 MiB
)

var ErrFrame = errors.New("gatewaywire: bad frame")

// ReadFrame reads a single length-prefixed JSON frame. Numbers decode as
// json.Number so large integers survive.
func ReadFrame(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := bx.U32(hdr[:])
	if n == 0 {
		return fmt.Errorf("%w: empty frame", ErrFrame)
	}
	if n > MaxFrameSize {
		return fmt.Errorf("%w: frame too large: %d > %d", ErrFrame, n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %w", ErrFrame, err)
	}
	return nil
}

// WriteFrame writes v as a length-prefixed JSON frame in one Write call.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gatewaywire: marshal: %w", err)
	}
	if len(b) > MaxFrameSize {
		return fmt.Errorf("%w: json too large: %d > %d", ErrFrame, len(b), MaxFrameSize)
	}

	out := make([]byte, 4, 4+len(b))
	bx.PutU32(out, uint32(len(b)))
	out = append(out, b...)

	_, err = w.Write(out)
	return err
}
