package sqlclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuannm99/pggateway"
	"github.com/tuannm99/pggateway/internal/pgerr"
	"github.com/tuannm99/pggateway/server/gatewaywire"
)

// Client talks to a gateway server. Calls from several goroutines are
// serialized over the one socket.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	dec *pggateway.Decoder

	// Optional per-request timeout (0 = no timeout).
	rwTimeout time.Duration
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn, dec: pggateway.NewDecoder(pggateway.DecoderConfig{})}
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, pgerr.Classify(err)
	}
	return New(c), nil
}

// SetRWTimeout sets a per-request read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

// SetDecoder replaces the decoder rows returned by FetchRow use.
func (c *Client) SetDecoder(dec *pggateway.Decoder) {
	if c == nil || dec == nil {
		return
	}
	c.dec = dec
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Execute runs sql on the server and returns the affected row count.
func (c *Client) Execute(ctx context.Context, sql string, params ...any) (int64, error) {
	resp, err := c.roundTrip(ctx, gatewaywire.Request{Op: gatewaywire.OpExecute, SQL: sql, Params: params})
	if err != nil {
		return 0, err
	}
	return resp.Affected, nil
}

// FetchRow runs sql on the server and decodes its only row locally.
func (c *Client) FetchRow(ctx context.Context, sql string, params ...any) (*pggateway.Row, error) {
	resp, err := c.roundTrip(ctx, gatewaywire.Request{Op: gatewaywire.OpFetchRow, SQL: sql, Params: params})
	if err != nil {
		return nil, err
	}
	if len(resp.Raw) != len(resp.Columns) {
		return nil, pgerr.Transport(fmt.Errorf("sqlclient: %d columns, %d values", len(resp.Columns), len(resp.Raw)))
	}

	cols := make([]pggateway.Column, len(resp.Columns))
	vals := make([]pggateway.WireValue, len(resp.Columns))
	for i, col := range resp.Columns {
		cols[i] = pggateway.Column{Name: col.Name, DeclaredType: col.Type, OID: col.OID}
		vals[i] = pggateway.WireValue{DeclaredType: col.Type, Raw: resp.Raw[i]}
	}
	return pggateway.NewRow(cols, vals, c.dec)
}

func (c *Client) roundTrip(ctx context.Context, req gatewaywire.Request) (*gatewaywire.Response, error) {
	if c == nil || c.conn == nil {
		return nil, pgerr.Transport(fmt.Errorf("sqlclient: nil client"))
	}

	req.ID = c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, pgerr.Classify(err)
	}
	defer func() {
		// Clear deadline after request so idle connection doesn't expire.
		_ = c.conn.SetDeadline(time.Time{})
	}()

	if err := gatewaywire.WriteFrame(c.conn, req); err != nil {
		return nil, pgerr.Classify(err)
	}

	var resp gatewaywire.Response
	if err := gatewaywire.ReadFrame(c.conn, &resp); err != nil {
		return nil, pgerr.Classify(err)
	}

	if resp.ID != req.ID {
		return nil, pgerr.Transport(fmt.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, req.ID))
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return &resp, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	// Prefer context deadline if present; otherwise use rwTimeout.
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
