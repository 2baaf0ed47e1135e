package pggateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tuannm99/pggateway/internal/decode"
	"github.com/tuannm99/pggateway/internal/driver"
	locking "github.com/tuannm99/pggateway/internal/lock"
	"github.com/tuannm99/pggateway/internal/pgerr"
	"github.com/tuannm99/pggateway/internal/record"
)

// Config configures ConnectConfig.
type Config struct {
	DSN string

	// ConnectTimeout bounds dialing and startup. Zero means only ctx does.
	ConnectTimeout time.Duration

	// Decoder is shared by every row this connection returns. Nil means a
	// default decoder per connection.
	Decoder *Decoder

	Logger *slog.Logger
}

// handle is the state every clone of a connection shares.
type handle struct {
	drv  *driver.Driver
	dec  *decode.Decoder
	refs *locking.RefCount
	log  *slog.Logger
}

type ref struct {
	owner  bool
	closed atomic.Bool
}

// Conn is a handle to one server connection. It is safe for concurrent
// use; requests from all goroutines and all clones are served one at a time
// in the order they were submitted.
type Conn struct {
	h   *handle
	ref *ref
}

// Connect dials dsn without TLS and starts the connection's driver.
func Connect(ctx context.Context, dsn string) (*Conn, error) {
	return ConnectConfig(ctx, Config{DSN: dsn})
}

// ConnectConfig is Connect with a timeout, a shared decoder and a logger.
func ConnectConfig(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	session, err := driver.Dial(ctx, cfg.DSN, cfg.Logger)
	if err != nil {
		// an authentication error from the server is still a connect failure
		return nil, pgerr.Transport(fmt.Errorf("connect: %w", err))
	}
	return newConn(session, cfg), nil
}

func newConn(session driver.Session, cfg Config) *Conn {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	dec := cfg.Decoder
	if dec == nil {
		dec = decode.New(decode.Config{Logger: cfg.Logger})
	}

	h := &handle{
		drv:  driver.Start(session, cfg.Logger),
		dec:  dec,
		refs: locking.NewRefCount(),
		log:  cfg.Logger,
	}
	return h.attach(true)
}

type cleanupArg struct {
	h   *handle
	ref *ref
}

func (h *handle) attach(owner bool) *Conn {
	c := &Conn{h: h, ref: &ref{owner: owner}}
	// a Conn dropped without Close still gives its reference back
	runtime.AddCleanup(c, func(a cleanupArg) { a.h.release(a.ref, false) }, cleanupArg{h: h, ref: c.ref})
	return c
}

// release drops one reference. An explicit Close by the owner aborts the
// driver; otherwise the driver is aborted only with the last reference, so
// an owner collected without Close leaves live clones working.
func (h *handle) release(r *ref, explicit bool) {
	if r.closed.Swap(true) {
		return
	}
	last := h.refs.Dec()
	if !last && !(r.owner && explicit) {
		return
	}
	if !last {
		h.log.Debug("pggateway: closing connection with live clones", "clones", h.refs.Get())
	}
	h.drv.Abort()
}

// Clone returns another handle to the same connection. Closing the clone
// leaves the connection open; closing the original closes it for every
// clone.
func (c *Conn) Clone() *Conn {
	if c == nil || c.h == nil || c.ref.closed.Load() || !c.h.refs.TryInc() {
		dead := &Conn{ref: &ref{}}
		dead.ref.closed.Store(true)
		return dead
	}
	return c.h.attach(false)
}

// Close is idempotent. Closing the original connection waits until the
// server session has been shut down.
func (c *Conn) Close() error {
	if c == nil || c.h == nil {
		return nil
	}
	c.h.release(c.ref, true)
	if c.h.drv.Closed() {
		<-c.h.drv.Done()
	}
	return nil
}

// Execute runs query and reports the number of rows it affected. Without
// params query may hold several statements; the count is the last one's.
func (c *Conn) Execute(ctx context.Context, query string, params ...any) (int64, error) {
	req := driver.Request{Op: driver.OpExec, SQL: query}
	if len(params) > 0 {
		req = driver.Request{Op: driver.OpQuery, SQL: query, Params: hostParams(params)}
	}

	res, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// FetchRow runs query and returns its only row. No rows is ErrNoRows and
// more than one is ErrTooManyRows.
func (c *Conn) FetchRow(ctx context.Context, query string, params ...any) (*Row, error) {
	res, err := c.do(ctx, driver.Request{Op: driver.OpQuery, SQL: query, Params: hostParams(params)})
	if err != nil {
		return nil, err
	}

	switch n := len(res.Rows); {
	case n == 0:
		return nil, ErrNoRows
	case n > 1:
		return nil, fmt.Errorf("%w: got %d", ErrTooManyRows, n)
	}

	rec, err := res.Row(0)
	if err != nil {
		return nil, pgerr.Classify(err)
	}
	return &Row{rec: rec, dec: c.h.dec}, nil
}

// Decoder returns the decoder rows of this connection use.
func (c *Conn) Decoder() *Decoder {
	if c == nil || c.h == nil {
		return nil
	}
	return c.h.dec
}

func (c *Conn) do(ctx context.Context, req driver.Request) (record.Result, error) {
	if c == nil || c.h == nil || c.ref.closed.Load() {
		return record.Result{}, pgerr.Transport(driver.ErrClosed)
	}
	res, err := c.h.drv.Do(ctx, req)
	switch {
	case errors.Is(err, driver.ErrClosed):
		return record.Result{}, pgerr.Transport(err)
	case err != nil:
		return record.Result{}, pgerr.Classify(err)
	}
	return res, nil
}

// hostParams turns decoded values back into something pgtype can encode.
func hostParams(params []any) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case Identifier:
			out[i] = v.String()
		case *Identifier:
			if v != nil {
				out[i] = v.String()
			}
		default:
			out[i] = p
		}
	}
	return out
}
