package pggateway

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Runs against a real server when PGGW_TEST_DSN is set.
func TestConn_Postgres(t *testing.T) {
	dsn := os.Getenv("PGGW_TEST_DSN")
	if dsn == "" {
		t.Skip("PGGW_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(ctx, `
		DROP TABLE IF EXISTS pggw_users;
		CREATE TEMP TABLE pggw_users (
			id    uuid PRIMARY KEY,
			email text CONSTRAINT pggw_users_email_key UNIQUE,
			tags  text[],
			meta  jsonb
		);
	`)
	require.NoError(t, err)

	n, err := c.Execute(ctx,
		"INSERT INTO pggw_users VALUES ($1, $2, $3, $4)",
		"00000000-0000-0000-0000-00000000002a", "a@example.com", []string{"x", "y"}, `{"a":[1,2,null]}`,
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = c.Execute(ctx,
		"INSERT INTO pggw_users VALUES ($1, $2, NULL, NULL)",
		"00000000-0000-0000-0000-00000000002b", "a@example.com",
	)
	require.ErrorIs(t, err, ErrUniqueViolation)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "pggw_users_email_key", ce.Constraint)

	r, err := c.FetchRow(ctx, "SELECT id, email, tags, meta FROM pggw_users")
	require.NoError(t, err)

	m, err := r.Map()
	require.NoError(t, err)
	require.Equal(t, Identifier{Value: Uint128{Lo: 42}}, m["id"])
	require.Equal(t, "a@example.com", m["email"])
	require.Equal(t, []any{"x", "y"}, m["tags"])
	require.Equal(t, map[string]any{"a": []any{int64(1), int64(2), nil}}, m["meta"])

	// the clone shares the session, so it sees the temp table
	cl := c.Clone()
	r, err = cl.FetchRow(ctx, "SELECT count(*) AS n FROM pggw_users")
	require.NoError(t, err)
	v, err := r.Get(0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.NoError(t, cl.Close())

	_, err = c.FetchRow(ctx, "SELECT 1 WHERE false")
	require.ErrorIs(t, err, ErrNoRows)
}
