package gatewaywire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"

	"github.com/tuannm99/pggateway"
)

// Conn is the part of *pggateway.Conn a session uses.
type Conn interface {
	Execute(ctx context.Context, query string, params ...any) (int64, error)
	FetchRow(ctx context.Context, query string, params ...any) (*pggateway.Row, error)
	Close() error
}

// Opener opens the database connection for one client.
type Opener func(ctx context.Context) (Conn, error)

// DialOpener opens a fresh pggateway connection per client.
func DialOpener(cfg pggateway.Config) Opener {
	return func(ctx context.Context) (Conn, error) {
		c, err := pggateway.ConnectConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type ServerConfig struct {
	Addr   string
	Conn   pggateway.Config
	Logger *slog.Logger
}

// Run listens on sc.Addr until SIGINT or SIGTERM.
func Run(sc ServerConfig) error {
	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, ln, DialOpener(sc.Conn), sc.Logger)
}

// Serve accepts clients on ln until ctx is done, then closes every session
// and waits for them.
func Serve(ctx context.Context, ln net.Listener, open Opener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	defer func() { _ = ln.Close() }()

	logger.Info("gatewaywire: listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg conc.WaitGroup
	defer wg.Wait()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("gatewaywire: shutting down")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			logger.Warn("gatewaywire: accept", "err", err)
			continue
		}

		s := &session{
			nc:   nc,
			open: open,
			log:  logger.With("remote", nc.RemoteAddr().String()),
		}
		wg.Go(func() { s.run(ctx) })
	}
}

// session serves one client. The database connection is opened on the
// first request; a failed open is reported and retried on the next one.
type session struct {
	nc   net.Conn
	open Opener
	log  *slog.Logger
	db   Conn
}

func (s *session) run(ctx context.Context) {
	defer func() { _ = s.nc.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = s.nc.Close() })
	defer stop()

	defer func() {
		if s.db != nil {
			_ = s.db.Close()
		}
	}()

	s.log.Debug("gatewaywire: client connected")
	for {
		var req Request
		if err := ReadFrame(s.nc, &req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("gatewaywire: read", "err", err)
			}
			return
		}

		resp := s.serve(ctx, &req)
		if err := WriteFrame(s.nc, resp); err != nil {
			s.log.Warn("gatewaywire: write", "id", req.ID, "err", err)
			return
		}
	}
}

func (s *session) serve(ctx context.Context, req *Request) Response {
	resp, err := s.handle(ctx, req)
	if err != nil {
		s.log.Debug("gatewaywire: request failed", "id", req.ID, "op", req.Op, "err", err)
		return Response{ID: req.ID, Error: ToWire(err)}
	}
	resp.ID = req.ID
	return resp
}

func (s *session) handle(ctx context.Context, req *Request) (Response, error) {
	args, err := params(req.Params)
	if err != nil {
		return Response{}, err
	}
	if req.Op != OpExecute && req.Op != OpFetchRow {
		return Response{}, fmt.Errorf("%w: unknown op %q", ErrBadRequest, req.Op)
	}

	if s.db == nil {
		db, err := s.open(ctx)
		if err != nil {
			return Response{}, err
		}
		s.db = db
	}

	if req.Op == OpExecute {
		n, err := s.db.Execute(ctx, req.SQL, args...)
		if err != nil {
			return Response{}, err
		}
		return Response{Affected: n}, nil
	}

	row, err := s.db.FetchRow(ctx, req.SQL, args...)
	if err != nil {
		return Response{}, err
	}
	return rowResponse(row, req.Decode)
}

func rowResponse(row *pggateway.Row, decode bool) (Response, error) {
	var resp Response
	for i, c := range row.Columns() {
		resp.Columns = append(resp.Columns, Column{Name: c.Name, Type: c.DeclaredType, OID: c.OID})

		wv, err := row.Raw(i)
		if err != nil {
			return Response{}, err
		}
		resp.Raw = append(resp.Raw, wv.Raw)
	}

	if decode {
		vals, err := row.Values()
		if err != nil {
			return Response{}, err
		}
		for _, v := range vals {
			resp.Values = append(resp.Values, jsonSafe(v))
		}
	}
	return resp, nil
}
