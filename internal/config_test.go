package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pggateway/internal/decode"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pggateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	require.Equal(t, "pggateway", cfg.AppName)
	require.Equal(t, "127.0.0.1:8866", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Postgres.ConnectTimeout)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)

	s, err := cfg.IdentifierSafety()
	require.NoError(t, err)
	require.Equal(t, decode.SafetyUnknown, s)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
app_name: gw-test
postgres:
  dsn: postgres://u@db:5432/app
  connect_timeout: 2s
server:
  addr: 0.0.0.0:9000
decoder:
  identifier_safety: safe
log:
  level: warn
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	require.Equal(t, "gw-test", cfg.AppName)
	require.Equal(t, "postgres://u@db:5432/app", cfg.Postgres.DSN)
	require.Equal(t, 2*time.Second, cfg.Postgres.ConnectTimeout)
	require.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)

	s, err := cfg.IdentifierSafety()
	require.NoError(t, err)
	require.Equal(t, decode.SafetySafe, s)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, lvl)
}

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: 127.0.0.1:1111\n")
	t.Setenv("PGGW_SERVER_ADDR", "127.0.0.1:2222")
	t.Setenv("PGGW_POSTGRES_DSN", "postgres://env@db/app")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2222", cfg.Server.Addr)
	require.Equal(t, "postgres://env@db/app", cfg.Postgres.DSN)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", "127.0.0.1:3333", "--debug"}))

	cfg, err = LoadConfig(path, fs)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3333", cfg.Server.Addr)
	require.Equal(t, "postgres://env@db/app", cfg.Postgres.DSN)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
decoder:
  identifier_safety: maybe
log:
  level: loud
`)
	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "identifier safety")
	require.Contains(t, err.Error(), "log.level")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}
