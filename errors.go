package pggateway

import (
	"errors"
	"fmt"

	"github.com/tuannm99/pggateway/internal/decode"
	"github.com/tuannm99/pggateway/internal/pgerr"
)

var (
	ErrNotFound   = errors.New("pggateway: not found")
	ErrOutOfRange = errors.New("pggateway: index out of range")

	// ErrNoRows and ErrTooManyRows are returned by FetchRow. Both match
	// ErrNotFound.
	ErrNoRows      = fmt.Errorf("%w: no rows in result set", ErrNotFound)
	ErrTooManyRows = fmt.Errorf("%w: more than one row in result set", ErrNotFound)

	// ErrMalformed is matched by every decode failure.
	ErrMalformed = decode.ErrMalformed
)

// Error is the classified error every Conn operation returns.
type Error = pgerr.Error

type Kind = pgerr.Kind

const (
	KindTransport       = pgerr.KindTransport
	KindUniqueViolation = pgerr.KindUniqueViolation
	KindOther           = pgerr.KindOther
)

// Sentinels for errors.Is, e.g. errors.Is(err, pggateway.ErrUniqueViolation).
var (
	ErrTransport       = pgerr.ErrTransport
	ErrUniqueViolation = pgerr.ErrUniqueViolation
	ErrOther           = pgerr.ErrOther
)

// ClassifiedKind reports the Kind of err, or 0 when err is not classified.
func ClassifiedKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
