package decode

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

// jsonbVersion is the only jsonb binary format version postgres emits.
const jsonbVersion = 1

// JSONStrategy parses json/jsonb into a tree of nil, bool, int64, uint64,
// float64, string, []any and map[string]any.
type JSONStrategy struct {
	// Binary is set for jsonb, whose payload starts with a version byte.
	Binary bool
}

func (j JSONStrategy) Decode(_ *Decoder, raw []byte) (any, error) {
	if j.Binary {
		if len(raw) == 0 || raw[0] != jsonbVersion {
			return nil, malformed("unsupported jsonb version")
		}
		raw = raw[1:]
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, malformed("json: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("json: trailing data after value")
	}
	return project(tree)
}

// project rewrites json.Number leaves in place; the tree is freshly parsed
// and not shared.
func project(v any) (any, error) {
	var err error
	switch x := v.(type) {
	case json.Number:
		return projectNumber(x)
	case []any:
		for i := range x {
			if x[i], err = project(x[i]); err != nil {
				return nil, err
			}
		}
		return x, nil
	case map[string]any:
		for k, e := range x {
			if x[k], err = project(e); err != nil {
				return nil, err
			}
		}
		return x, nil
	default:
		// nil, bool, string
		return x, nil
	}
}

// projectNumber prefers int64, then uint64, then float64. A number no
// float64 can hold is malformed.
func projectNumber(n json.Number) (any, error) {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, malformed("json: number %s: %v", s, err)
	}
	return f, nil
}
