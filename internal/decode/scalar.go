package decode

import (
	"math"
	"unicode/utf8"

	"github.com/tuannm99/pggateway/internal/alias/bx"
)

func registerBuiltins(d *Decoder) {
	d.Register("int2", StrategyFunc(decodeInt2))
	d.Register("int4", StrategyFunc(decodeInt4))
	d.Register("int8", StrategyFunc(decodeInt8))
	d.Register("float4", StrategyFunc(decodeFloat4))
	d.Register("float8", StrategyFunc(decodeFloat8))

	for _, name := range []string{"text", "varchar", "char", "bpchar", "name"} {
		d.Register(name, StrategyFunc(decodeText))
	}

	d.Register("bool", StrategyFunc(decodeBool))
	d.Register("bytea", StrategyFunc(decodeBytea))
	d.Register("uuid", IdentifierStrategy{})
	d.Register("json", JSONStrategy{})
	d.Register("jsonb", JSONStrategy{Binary: true})
}

func wantWidth(raw []byte, n int, typ string) error {
	if len(raw) != n {
		return malformed("%s wants %d bytes, got %d", typ, n, len(raw))
	}
	return nil
}

func decodeInt2(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 2, "int2"); err != nil {
		return nil, err
	}
	return bx.I16(raw), nil
}

func decodeInt4(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 4, "int4"); err != nil {
		return nil, err
	}
	return bx.I32(raw), nil
}

func decodeInt8(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 8, "int8"); err != nil {
		return nil, err
	}
	return bx.I64(raw), nil
}

func decodeFloat4(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 4, "float4"); err != nil {
		return nil, err
	}
	return math.Float32frombits(bx.U32(raw)), nil
}

func decodeFloat8(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 8, "float8"); err != nil {
		return nil, err
	}
	return math.Float64frombits(bx.U64(raw)), nil
}

// text-like payloads are not length framed: the value is the whole payload.
func decodeText(_ *Decoder, raw []byte) (any, error) {
	if !utf8.Valid(raw) {
		return nil, malformed("text is not valid UTF-8")
	}
	return string(raw), nil
}

func decodeBool(_ *Decoder, raw []byte) (any, error) {
	if err := wantWidth(raw, 1, "bool"); err != nil {
		return nil, err
	}
	return raw[0] != 0, nil
}

func decodeBytea(_ *Decoder, raw []byte) (any, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}
