package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgconn/ctxwatch"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuannm99/pggateway/internal/record"
	"github.com/tuannm99/pggateway/internal/typecache"
)

var ErrUnsupportedParam = errors.New("driver: unsupported parameter type")

const (
	typeNameQuery = "SELECT typname FROM pg_catalog.pg_type WHERE oid = $1::oid"
	typeCacheSize = 256

	// A cancelled query gets a CancelRequest right away; the socket deadline
	// only fires if the server has not answered it by then.
	cancelRequestDelay  time.Duration = 0
	cancelDeadlineDelay time.Duration = 5 * time.Second
)

// pgSession is a Session over a single pgconn connection.
type pgSession struct {
	conn *pgconn.PgConn
	log  *slog.Logger

	// types names every OID pgtype knows and encodes parameters.
	types *pgtype.Map
	// names caches OIDs looked up in pg_type (user types, extensions).
	names *typecache.Cache
}

// Dial connects to dsn without TLS.
func Dial(ctx context.Context, dsn string, logger *slog.Logger) (Session, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	plaintext(cfg)
	cancelByRequest(cfg)

	conn, err := pgconn.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newPgSession(conn, logger), nil
}

// plaintext drops every TLS attempt from cfg, whatever sslmode said.
func plaintext(cfg *pgconn.Config) {
	cfg.TLSConfig = nil

	fallbacks := cfg.Fallbacks[:0]
	for _, fb := range cfg.Fallbacks {
		if fb.TLSConfig != nil {
			continue
		}
		if fb.Host == cfg.Host && fb.Port == cfg.Port {
			continue
		}
		fallbacks = append(fallbacks, fb)
	}
	cfg.Fallbacks = fallbacks
}

// cancelByRequest makes a cancelled query context send a CancelRequest
// instead of expiring the socket deadline. The default handler closes the
// connection on every mid-query cancel, which would stop the driver for
// every clone.
func cancelByRequest(cfg *pgconn.Config) {
	cfg.BuildContextWatcherHandler = func(pgConn *pgconn.PgConn) ctxwatch.Handler {
		return &pgconn.CancelRequestContextWatcherHandler{
			Conn:               pgConn,
			CancelRequestDelay: cancelRequestDelay,
			DeadlineDelay:      cancelDeadlineDelay,
		}
	}
}

func newPgSession(conn *pgconn.PgConn, logger *slog.Logger) *pgSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &pgSession{
		conn:  conn,
		log:   logger,
		types: pgtype.NewMap(),
		names: typecache.New(typeCacheSize),
	}
}

func (s *pgSession) Exec(ctx context.Context, sql string) (record.Result, error) {
	results, err := s.conn.Exec(ctx, sql).ReadAll()
	if err != nil {
		return record.Result{}, err
	}

	var out record.Result
	for _, r := range results {
		if r.Err != nil {
			return record.Result{}, r.Err
		}
		// a batch reports the count of its last statement
		out.RowsAffected = r.CommandTag.RowsAffected()
	}
	return out, nil
}

func (s *pgSession) Query(ctx context.Context, sql string, params []any) (record.Result, error) {
	values, err := s.encodeParams(params)
	if err != nil {
		return record.Result{}, err
	}

	rr := s.conn.ExecParams(ctx, sql, values, nil, nil, []int16{pgtype.BinaryFormatCode})

	var rows [][]record.WireValue
	for rr.NextRow() {
		vals := rr.Values()
		row := make([]record.WireValue, len(vals))
		for i, v := range vals {
			// nil stays nil: it is the NULL marker
			if v != nil {
				row[i].Raw = append(make([]byte, 0, len(v)), v...)
			}
		}
		rows = append(rows, row)
	}
	// pgconn reuses the description buffer on the next query
	fds := append([]pgconn.FieldDescription(nil), rr.FieldDescriptions()...)

	tag, err := rr.Close()
	if err != nil {
		return record.Result{}, err
	}

	cols, err := s.columns(ctx, fds)
	if err != nil {
		return record.Result{}, err
	}
	for _, row := range rows {
		for i := range row {
			row[i].DeclaredType = cols[i].DeclaredType
		}
	}

	return record.Result{
		Columns:      cols,
		Rows:         rows,
		RowsAffected: tag.RowsAffected(),
	}, nil
}

// encodeParams renders every parameter in text format. Parameter OIDs are
// left to the server to infer.
func (s *pgSession) encodeParams(params []any) ([][]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}

	out := make([][]byte, len(params))
	for i, p := range params {
		if p == nil {
			continue
		}
		t, ok := s.types.TypeForValue(p)
		if !ok {
			return nil, fmt.Errorf("%w: $%d is %T", ErrUnsupportedParam, i+1, p)
		}
		buf, err := s.types.Encode(t.OID, pgtype.TextFormatCode, p, nil)
		if err != nil {
			return nil, fmt.Errorf("driver: encode $%d: %w", i+1, err)
		}
		out[i] = buf
	}
	return out, nil
}

func (s *pgSession) columns(ctx context.Context, fds []pgconn.FieldDescription) ([]record.Column, error) {
	cols := make([]record.Column, len(fds))
	for i, fd := range fds {
		name, err := s.typeName(ctx, fd.DataTypeOID)
		if err != nil {
			return nil, err
		}
		cols[i] = record.Column{Name: fd.Name, DeclaredType: name, OID: fd.DataTypeOID}
	}
	return cols, nil
}

func (s *pgSession) typeName(ctx context.Context, oid uint32) (string, error) {
	if t, ok := s.types.TypeForOID(oid); ok {
		return t.Name, nil
	}
	if name, ok := s.names.Get(oid); ok {
		return name, nil
	}

	arg := [][]byte{[]byte(strconv.FormatUint(uint64(oid), 10))}
	res := s.conn.ExecParams(ctx, typeNameQuery, arg, nil, nil, nil).Read()
	if res.Err != nil {
		return "", fmt.Errorf("driver: resolve type %d: %w", oid, res.Err)
	}

	name := unknownTypeName(oid)
	if len(res.Rows) == 1 && res.Rows[0][0] != nil {
		name = string(res.Rows[0][0])
	}
	s.names.Put(oid, name)

	s.log.Debug("driver: resolved type", "oid", oid, "name", name)
	return name, nil
}

// unknownTypeName never matches a registered decoder, so such columns take
// the raw bytes fallback.
func unknownTypeName(oid uint32) string {
	return "oid:" + strconv.FormatUint(uint64(oid), 10)
}

func (s *pgSession) IsClosed() bool { return s.conn.IsClosed() }

func (s *pgSession) Close(ctx context.Context) error { return s.conn.Close(ctx) }
