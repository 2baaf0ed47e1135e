package gatewaywire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/internal/pgerr"
)

const (
	OpExecute  = "execute"
	OpFetchRow = "fetchrow"
)

// Error kinds beyond the three classified ones.
const (
	KindNoRows      = "no_rows"
	KindTooManyRows = "too_many_rows"
	KindMalformed   = "malformed"
	KindBadRequest  = "bad_request"
)

var ErrBadRequest = errors.New("gatewaywire: bad request")

// Request is one command. Params are JSON scalars or arrays of them.
type Request struct {
	ID     uint64 `json:"id"`
	Op     string `json:"op"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`

	// Decode asks the server to also send the decoded row values.
	Decode bool `json:"decode,omitempty"`
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
	OID  uint32 `json:"oid,omitempty"`
}

// Response answers the request with the same ID. Raw carries the row's wire
// payloads (null for NULL) so the client can decode them itself.
type Response struct {
	ID       uint64   `json:"id"`
	Affected int64    `json:"affected,omitempty"`
	Columns  []Column `json:"columns,omitempty"`
	Raw      [][]byte `json:"raw,omitempty"`
	Values   []any    `json:"values,omitempty"`
	Error    *Error   `json:"error,omitempty"`
}

type Error struct {
	Kind       string `json:"kind"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ToWire flattens an error returned by pggateway.
func ToWire(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *pggateway.Error
	switch {
	case errors.Is(err, pggateway.ErrNoRows):
		return &Error{Kind: KindNoRows, Detail: err.Error()}
	case errors.Is(err, pggateway.ErrTooManyRows):
		return &Error{Kind: KindTooManyRows, Detail: err.Error()}
	case errors.Is(err, pggateway.ErrMalformed):
		return &Error{Kind: KindMalformed, Detail: err.Error()}
	case errors.Is(err, ErrBadRequest):
		return &Error{Kind: KindBadRequest, Detail: err.Error()}
	case errors.As(err, &ce):
		return &Error{
			Kind:       ce.Kind.String(),
			Code:       ce.Code,
			Constraint: ce.Constraint,
			Detail:     ce.Detail,
		}
	default:
		return &Error{Kind: pggateway.KindOther.String(), Detail: err.Error()}
	}
}

// Err rebuilds an error that matches the same sentinels the server-side
// error did.
func (e *Error) Err() error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindNoRows:
		return pggateway.ErrNoRows
	case KindTooManyRows:
		return fmt.Errorf("%w (%s)", pggateway.ErrTooManyRows, e.Detail)
	case KindMalformed:
		return fmt.Errorf("%w (%s)", pggateway.ErrMalformed, e.Detail)
	case KindBadRequest:
		return fmt.Errorf("%w (%s)", ErrBadRequest, e.Detail)
	}

	kind, err := pgerr.ParseKind(e.Kind)
	if err != nil {
		kind = pggateway.KindOther
	}
	return pgerr.New(kind, e.Code, e.Constraint, e.Detail)
}

// params turns JSON-decoded parameters into values the driver can encode.
// Arrays must be homogeneous.
func params(in []any) ([]any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]any, len(in))
	for i, p := range in {
		v, err := param(p)
		if err != nil {
			return nil, fmt.Errorf("%w: $%d: %w", ErrBadRequest, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func param(p any) (any, error) {
	switch v := p.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case []any:
		return arrayParam(v)
	default:
		return nil, fmt.Errorf("unsupported %T", p)
	}
}

func arrayParam(in []any) (any, error) {
	if len(in) == 0 {
		return []string{}, nil
	}
	first, err := param(in[0])
	if err != nil {
		return nil, err
	}

	switch first.(type) {
	case string:
		return collect[string](in)
	case int64:
		return collect[int64](in)
	case float64:
		return collect[float64](in)
	case bool:
		return collect[bool](in)
	default:
		return nil, fmt.Errorf("unsupported array element %T", first)
	}
}

func collect[T any](in []any) ([]T, error) {
	out := make([]T, len(in))
	for i, e := range in {
		v, err := param(e)
		if err != nil {
			return nil, err
		}
		t, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("mixed array: element %d is %T", i, v)
		}
		out[i] = t
	}
	return out, nil
}

// jsonSafe replaces the float values encoding/json refuses.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case float64:
		return safeFloat(x)
	case float32:
		return safeFloat(float64(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonSafe(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonSafe(e)
		}
		return out
	default:
		return v
	}
}

func safeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
