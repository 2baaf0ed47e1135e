package decode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tuannm99/pggateway/internal/alias/bx"
)

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Hi, Lo uint64
}

// Uint128FromBytes reads b as a big-endian integer.
func Uint128FromBytes(b [16]byte) Uint128 {
	return Uint128{Hi: bx.U64(b[:8]), Lo: bx.U64(b[8:])}
}

// Bytes is the big-endian encoding of u.
func (u Uint128) Bytes() [16]byte {
	var b [16]byte
	bx.PutU64(b[:8], u.Hi)
	bx.PutU64(b[8:], u.Lo)
	return b
}

func (u Uint128) Big() *big.Int {
	b := u.Bytes()
	return new(big.Int).SetBytes(b[:])
}

// String is the decimal form.
func (u Uint128) String() string { return u.Big().String() }

// Safety says whether an identifier was generated in a way that is safe
// across processes. Values read from a server have unknown provenance.
type Safety uint8

const (
	SafetyUnknown Safety = iota
	SafetySafe
	SafetyUnsafe
)

func (s Safety) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

func ParseSafety(s string) (Safety, error) {
	switch s {
	case "", "unknown":
		return SafetyUnknown, nil
	case "safe":
		return SafetySafe, nil
	case "unsafe":
		return SafetyUnsafe, nil
	}
	return SafetyUnknown, fmt.Errorf("decode: unknown identifier safety %q", s)
}

// Identifier is the default value decoded from a uuid column.
type Identifier struct {
	Value  Uint128
	Safety Safety
}

// String renders the 8-4-4-4-12 hex form.
func (id Identifier) String() string {
	b := id.Value.Bytes()
	var buf [36]byte
	hex.Encode(buf[0:8], b[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], b[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], b[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], b[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], b[10:])
	return string(buf[:])
}

func (id Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// IdentifierStrategy accepts any 16 bytes; version and variant bits are not
// checked.
type IdentifierStrategy struct{}

func (IdentifierStrategy) Decode(d *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 16, "uuid"); err != nil {
		return nil, err
	}
	v := Uint128FromBytes([16]byte(raw))

	cfg := d.Config()
	if cfg.NewIdentifier != nil {
		return cfg.NewIdentifier(v, cfg.Safety), nil
	}
	return Identifier{Value: v, Safety: cfg.Safety}, nil
}
