// Package pggateway exposes a PostgreSQL connection to dynamic hosts: rows
// come back as plain Go values (int64, string, []any, map[string]any, ...)
// chosen by the server's declared column type, and every failure is one of
// three error kinds.
package pggateway

import (
	"github.com/tuannm99/pggateway/internal/decode"
	"github.com/tuannm99/pggateway/internal/record"
)

type (
	Column    = record.Column
	WireValue = record.WireValue

	Decoder       = decode.Decoder
	DecoderConfig = decode.Config
	Strategy      = decode.Strategy
	StrategyFunc  = decode.StrategyFunc

	Identifier = decode.Identifier
	Uint128    = decode.Uint128
	Safety     = decode.Safety
)

const (
	SafetyUnknown = decode.SafetyUnknown
	SafetySafe    = decode.SafetySafe
	SafetyUnsafe  = decode.SafetyUnsafe
)

// NewDecoder returns a decoder with every built-in type registered. One
// decoder may be shared by any number of connections.
func NewDecoder(cfg DecoderConfig) *Decoder { return decode.New(cfg) }
