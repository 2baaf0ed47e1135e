package pggateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pggateway/internal/alias/bx"
)

func idNameRow(t *testing.T) *Row {
	t.Helper()
	r, err := NewRow(
		[]Column{
			{Name: "id", DeclaredType: "int4", OID: 23},
			{Name: "name", DeclaredType: "text", OID: 25},
		},
		[]WireValue{
			{DeclaredType: "int4", Raw: bx.AppendI32(nil, 7)},
			{DeclaredType: "text", Raw: []byte("alice")},
		},
		nil,
	)
	require.NoError(t, err)
	return r
}

func TestRow_Lookup(t *testing.T) {
	r := idNameRow(t)

	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"id", "name"}, r.Keys())

	v, err := r.Get(0)
	require.NoError(t, err)
	require.Equal(t, int32(7), v)

	v, err = r.GetByName("name")
	require.NoError(t, err)
	require.Equal(t, "alice", v)

	_, err = r.Get(2)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.Get(-1)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = r.GetByName("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRow_Index(t *testing.T) {
	r := idNameRow(t)

	for _, key := range []any{0, int8(0), int16(0), int32(0), int64(0), uint(0), uint8(0), uint16(0), uint32(0), uint64(0)} {
		v, err := r.Index(key)
		require.NoError(t, err, "%T", key)
		require.Equal(t, int32(7), v)
	}

	v, err := r.Index("name")
	require.NoError(t, err)
	require.Equal(t, "alice", v)

	_, err = r.Index(uint64(1) << 63)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = r.Index(1.5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRow_RepeatedAccessIsStable(t *testing.T) {
	r, err := NewRow(
		[]Column{{Name: "doc", DeclaredType: "json"}},
		[]WireValue{{DeclaredType: "json", Raw: []byte(`{"a":[1,null]}`)}},
		nil,
	)
	require.NoError(t, err)

	first, err := r.Get(0)
	require.NoError(t, err)
	second, err := r.Get(0)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, map[string]any{"a": []any{int64(1), nil}}, first)
}

func TestRow_DuplicateNames(t *testing.T) {
	r, err := NewRow(
		[]Column{
			{Name: "x", DeclaredType: "text"},
			{Name: "x", DeclaredType: "text"},
		},
		[]WireValue{
			{DeclaredType: "text", Raw: []byte("first")},
			{DeclaredType: "text", Raw: []byte("second")},
		},
		nil,
	)
	require.NoError(t, err)

	require.Equal(t, []string{"x", "x"}, r.Keys())

	v, err := r.GetByName("x")
	require.NoError(t, err)
	require.Equal(t, "first", v)

	m, err := r.Map()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": "first"}, m)

	vals, err := r.Values()
	require.NoError(t, err)
	require.Equal(t, []any{"first", "second"}, vals)
}

func TestRow_NullAndMalformed(t *testing.T) {
	r, err := NewRow(
		[]Column{
			{Name: "n", DeclaredType: "int4"},
			{Name: "bad", DeclaredType: "int4"},
		},
		[]WireValue{
			{DeclaredType: "int4"},
			{DeclaredType: "int4", Raw: []byte{1, 2}},
		},
		nil,
	)
	require.NoError(t, err)

	v, err := r.Get(0)
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = r.Get(1)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = r.Values()
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewRow_Mismatch(t *testing.T) {
	_, err := NewRow([]Column{{Name: "a"}}, nil, nil)
	require.Error(t, err)
}
