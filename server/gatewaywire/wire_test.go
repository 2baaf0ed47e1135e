package gatewaywire

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/internal/pgerr"
)

func TestParams(t *testing.T) {
	got, err := params([]any{
		nil,
		true,
		"x",
		json.Number("42"),
		json.Number("1.5"),
		[]any{"a", "b"},
		[]any{json.Number("1"), json.Number("2")},
		[]any{},
	})
	require.NoError(t, err)
	require.Equal(t, []any{
		nil,
		true,
		"x",
		int64(42),
		1.5,
		[]string{"a", "b"},
		[]int64{1, 2},
		[]string{},
	}, got)

	_, err = params([]any{[]any{"a", json.Number("1")}})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = params([]any{map[string]any{"k": "v"}})
	require.ErrorIs(t, err, ErrBadRequest)

	got, err = params(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestError_WireRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"unique", pgerr.New(pggateway.KindUniqueViolation, "23505", "users_email_key", "duplicate key"), pggateway.ErrUniqueViolation},
		{"other", pgerr.New(pggateway.KindOther, "42601", "", "syntax error"), pggateway.ErrOther},
		{"transport", pgerr.Classify(context.DeadlineExceeded), pggateway.ErrTransport},
		{"no rows", pggateway.ErrNoRows, pggateway.ErrNotFound},
		{"too many rows", pggateway.ErrTooManyRows, pggateway.ErrTooManyRows},
		{"malformed", &decodeErr{}, pggateway.ErrMalformed},
		{"bad request", ErrBadRequest, ErrBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ToWire(tc.err)
			require.NotNil(t, w)
			require.ErrorIs(t, w.Err(), tc.is)
		})
	}

	var nilErr *Error
	require.NoError(t, nilErr.Err())
	require.Nil(t, ToWire(nil))
}

func TestError_KeepsConstraint(t *testing.T) {
	w := ToWire(pgerr.New(pggateway.KindUniqueViolation, "23505", "users_email_key", "duplicate key"))
	require.Equal(t, &Error{Kind: "unique_violation", Code: "23505", Constraint: "users_email_key", Detail: "duplicate key"}, w)

	var ce *pggateway.Error
	require.True(t, errors.As(w.Err(), &ce))
	require.Equal(t, "users_email_key", ce.Constraint)
}

func TestJSONSafe(t *testing.T) {
	in := []any{math.NaN(), math.Inf(1), map[string]any{"f": float32(math.Inf(-1))}, 1.5}
	out := jsonSafe(in)
	require.Equal(t, []any{"NaN", "Infinity", map[string]any{"f": "-Infinity"}, 1.5}, out)

	_, err := json.Marshal(out)
	require.NoError(t, err)
}

type decodeErr struct{}

func (*decodeErr) Error() string { return "decode int4: bad width" }
func (*decodeErr) Unwrap() error { return pggateway.ErrMalformed }
