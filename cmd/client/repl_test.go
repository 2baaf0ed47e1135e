package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/internal/alias/bx"
)

func TestStatementComplete(t *testing.T) {
	require.False(t, statementComplete("SELECT 1"))
	require.True(t, statementComplete("SELECT 1;"))
	require.False(t, statementComplete("SELECT ';"))
	require.True(t, statementComplete("SELECT 'it''s;';"))
	require.False(t, statementComplete("INSERT INTO t VALUES ('a;b'"))
}

func TestReturnsRow(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"SELECT 1;", true},
		{"  with x as (select 1) select * from x", true},
		{"values (1);", true},
		{"SHOW server_version;", true},
		{"TABLE users;", true},
		{"INSERT INTO t VALUES (1) RETURNING id;", true},
		{"INSERT INTO t VALUES (1);", false},
		{"UPDATE t SET a = 1;", false},
		{"CREATE TABLE t (id int);", false},
		{"", false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, returnsRow(tc.stmt), tc.stmt)
	}
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "NULL", formatValue(nil))
	require.Equal(t, "alice", formatValue("alice"))
	require.Equal(t, `\xbeef`, formatValue([]byte{0xbe, 0xef}))
	require.Equal(t, "42", formatValue(int64(42)))
	require.Equal(t, `{"a":[1,null]}`, formatValue(map[string]any{"a": []any{int64(1), nil}}))
	require.Equal(t, "00000000-0000-0000-0000-000000000001",
		formatValue(pggateway.Identifier{Value: pggateway.Uint128{Lo: 1}}))
}

type fakeGateway struct {
	affected int64
	row      *pggateway.Row
	stmts    []string
}

func (f *fakeGateway) Execute(_ context.Context, sql string, _ ...any) (int64, error) {
	f.stmts = append(f.stmts, "exec:"+sql)
	return f.affected, nil
}

func (f *fakeGateway) FetchRow(_ context.Context, sql string, _ ...any) (*pggateway.Row, error) {
	f.stmts = append(f.stmts, "fetch:"+sql)
	if f.row == nil {
		return nil, pggateway.ErrNoRows
	}
	return f.row, nil
}

func TestRun(t *testing.T) {
	row, err := pggateway.NewRow(
		[]pggateway.Column{{Name: "id", DeclaredType: "int4"}, {Name: "name", DeclaredType: "text"}},
		[]pggateway.WireValue{
			{DeclaredType: "int4", Raw: bx.AppendI32(nil, 7)},
			{DeclaredType: "text", Raw: []byte("alice")},
		},
		nil,
	)
	require.NoError(t, err)

	g := &fakeGateway{affected: 3, row: row}
	var out bytes.Buffer

	require.NoError(t, run(g, &out, "UPDATE t SET a = 1;"))
	require.Contains(t, out.String(), "OK (3 affected)")

	out.Reset()
	require.NoError(t, run(g, &out, "SELECT id, name FROM t;"))
	require.Contains(t, out.String(), "id")
	require.Contains(t, out.String(), "alice")
	require.Contains(t, out.String(), "(1 row)")

	g.row = nil
	require.ErrorIs(t, run(g, &out, "SELECT 1;"), pggateway.ErrNoRows)

	require.Equal(t, []string{
		"exec:UPDATE t SET a = 1;",
		"fetch:SELECT id, name FROM t;",
		"fetch:SELECT 1;",
	}, g.stmts)
}

func TestHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history")

	h := NewHistory(path)
	require.NoError(t, h.Load(10))
	require.Empty(t, h.Lines())

	require.NoError(t, h.Append("SELECT\n  1;"))
	require.NoError(t, h.Append("   "))
	require.NoError(t, h.Append("SELECT 2;"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1;\nSELECT 2;\n", string(b))

	h2 := NewHistory(path)
	require.NoError(t, h2.Load(1))
	require.Equal(t, []string{"SELECT 2;"}, h2.Lines())

	var out bytes.Buffer
	h.Print(&out, 1)
	require.Equal(t, "    2  SELECT 2;\n", out.String())
}
