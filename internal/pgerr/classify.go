package pgerr

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the stable category of a failure crossing the gateway boundary.
type Kind uint8

const (
	// KindTransport covers dial, authentication, network and protocol
	// failures plus use of a closed connection.
	KindTransport Kind = iota + 1
	// KindUniqueViolation is SQLSTATE 23505.
	KindUniqueViolation
	// KindOther is any other error reported by the server.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUniqueViolation:
		return "unique_violation"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "transport":
		return KindTransport, nil
	case "unique_violation":
		return KindUniqueViolation, nil
	case "other":
		return KindOther, nil
	}
	return 0, fmt.Errorf("pgerr: unknown kind %q", s)
}

// Error is a classified failure. Code and Constraint are empty when the
// server did not supply them.
type Error struct {
	Kind       Kind
	Code       string
	Constraint string
	Detail     string

	cause error
}

// New builds an Error that did not come from Classify, e.g. one rebuilt on
// the far side of a gateway connection.
func New(kind Kind, code, constraint, detail string) *Error {
	return &Error{Kind: kind, Code: code, Constraint: constraint, Detail: detail}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Detail
	if e.Code != "" {
		msg += " (SQLSTATE " + e.Code + ")"
	}
	if e.Constraint != "" {
		msg += " [constraint " + e.Constraint + "]"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, pgerr.ErrUniqueViolation).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == "" && t.Constraint == "" && t.Detail == ""
}

var (
	ErrTransport       = &Error{Kind: KindTransport}
	ErrUniqueViolation = &Error{Kind: KindUniqueViolation}
	ErrOther           = &Error{Kind: KindOther}
)

// Classify maps any failure from the transport layer onto an *Error.
// nil stays nil and an already classified error is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyServer(pgErr, err)
	}

	return Transport(err)
}

// Transport classifies err as a transport failure whatever it wraps. A
// server error that only happened because the connection was going away
// belongs here.
func Transport(err error) *Error {
	return &Error{
		Kind:   KindTransport,
		Detail: Redact(err.Error()),
		cause:  err,
	}
}

func classifyServer(pgErr *pgconn.PgError, cause error) *Error {
	detail := pgErr.Message
	if pgErr.Detail != "" {
		detail += ": " + pgErr.Detail
	}

	e := &Error{
		Kind:   KindOther,
		Code:   pgErr.Code,
		Detail: detail,
		cause:  cause,
	}
	if pgErr.Code == pgerrcode.UniqueViolation {
		e.Kind = KindUniqueViolation
		e.Constraint = pgErr.ConstraintName
	}
	return e
}

var (
	keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)
	urlPassword     = regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/@\s]+:)[^@\s]*@`)
)

// Redact strips passwords from connection strings embedded in an error text.
func Redact(s string) string {
	s = keywordPassword.ReplaceAllString(s, "${1}xxxxx")
	return urlPassword.ReplaceAllString(s, "${1}xxxxx@")
}
