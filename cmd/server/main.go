package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/internal"
	"github.com/tuannm99/pggateway/server/gatewaywire"
)

func main() {
	cfgPath := pflag.String("config", "", "yaml config file")
	internal.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath, pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Validate already checked both
	level, _ := cfg.LogLevel()
	safety, _ := cfg.IdentifierSafety()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("app", cfg.AppName)
	slog.SetDefault(logger)

	dec := pggateway.NewDecoder(pggateway.DecoderConfig{
		Safety: safety,
		Logger: logger,
	})

	err = gatewaywire.Run(gatewaywire.ServerConfig{
		Addr: cfg.Server.Addr,
		Conn: pggateway.Config{
			DSN:            cfg.Postgres.DSN,
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
			Decoder:        dec,
			Logger:         logger,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}

	for typ, n := range dec.Fallbacks() {
		logger.Info("undecoded type seen", "type", typ, "count", n)
	}
}
