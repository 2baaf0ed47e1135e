package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuannm99/pggateway/internal/record"
)

var ErrClosed = errors.New("driver: connection is closed")

// closeTimeout bounds the Terminate handshake when the driver stops.
const closeTimeout = 5 * time.Second

// Session is one physical server connection. It is not safe for concurrent
// use; the Driver is its only caller.
type Session interface {
	// Exec runs one or more statements through the simple query protocol.
	Exec(ctx context.Context, sql string) (record.Result, error)

	// Query runs a single statement through the extended protocol with
	// binary results.
	Query(ctx context.Context, sql string, params []any) (record.Result, error)

	IsClosed() bool
	Close(ctx context.Context) error
}

// Op selects the protocol a Request runs through.
type Op uint8

const (
	OpExec Op = iota + 1
	OpQuery
)

func (o Op) String() string {
	switch o {
	case OpExec:
		return "exec"
	case OpQuery:
		return "query"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Request is one unit of work for the driver goroutine.
type Request struct {
	Op     Op
	SQL    string
	Params []any
}

type reply struct {
	res record.Result
	err error
}

type call struct {
	ctx   context.Context
	req   Request
	reply chan reply // buffered, the driver never blocks on it
}

// Driver owns a Session and performs all of its I/O on one goroutine.
// Requests are served one at a time in the order they were accepted.
type Driver struct {
	session Session
	log     *slog.Logger

	calls chan *call

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Start spawns the driver goroutine. It runs until Abort is called or the
// session reports its socket closed.
func Start(session Session, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Driver{
		session: session,
		log:     logger,
		calls:   make(chan *call),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Driver) run() {
	defer close(d.done)
	defer d.closeSession()

	for {
		select {
		case <-d.ctx.Done():
			return
		case c := <-d.calls:
			res, err := d.serve(c)
			c.reply <- reply{res: res, err: err}

			if d.session.IsClosed() {
				if d.ctx.Err() != nil {
					// Abort interrupted the request and pgconn dropped the socket
					d.log.Debug("driver: connection closed by abort", "op", c.req.Op)
				} else {
					d.log.Error("driver: connection lost", "op", c.req.Op, "err", err)
				}
				d.cancel()
				return
			}
		}
	}
}

func (d *Driver) serve(c *call) (record.Result, error) {
	if d.ctx.Err() != nil {
		return record.Result{}, ErrClosed
	}

	// the request ends when either its caller or the driver gives up
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(d.ctx, cancel)
	defer stop()

	start := time.Now()

	var (
		res record.Result
		err error
	)
	switch c.req.Op {
	case OpExec:
		res, err = d.session.Exec(ctx, c.req.SQL)
	case OpQuery:
		res, err = d.session.Query(ctx, c.req.SQL, c.req.Params)
	default:
		err = fmt.Errorf("driver: unknown op %v", c.req.Op)
	}

	if err != nil && d.ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ErrClosed, err)
	}

	d.log.Debug("driver: request done",
		"op", c.req.Op,
		"rows", len(res.Rows),
		"elapsed", time.Since(start),
		"err", err,
	)
	return res, err
}

func (d *Driver) closeSession() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := d.session.Close(ctx); err != nil {
		d.log.Warn("driver: close session", "err", err)
	}
}

// Do submits req and waits for its result. It returns ErrClosed once the
// driver has been aborted.
func (d *Driver) Do(ctx context.Context, req Request) (record.Result, error) {
	if err := ctx.Err(); err != nil {
		return record.Result{}, err
	}
	c := &call{ctx: ctx, req: req, reply: make(chan reply, 1)}

	select {
	case d.calls <- c:
	case <-d.ctx.Done():
		return record.Result{}, ErrClosed
	case <-ctx.Done():
		return record.Result{}, ctx.Err()
	}

	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		// serve sees the same cancellation and replies into the buffer
		return record.Result{}, ctx.Err()
	}
}

// Abort stops the driver. Calling it more than once is a no-op.
func (d *Driver) Abort() { d.cancel() }

// Done is closed after the driver goroutine exited and closed the session.
func (d *Driver) Done() <-chan struct{} { return d.done }

func (d *Driver) Closed() bool { return d.ctx.Err() != nil }
