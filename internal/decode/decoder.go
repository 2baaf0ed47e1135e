package decode

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tuannm99/pggateway/internal/record"
)

// ErrMalformed marks a payload that does not fit its declared type (wrong
// width, truncated array framing, invalid UTF-8, ...). It fails only the
// decode that hit it.
var ErrMalformed = errors.New("decode: malformed payload")

// Error reports which declared type failed to decode.
type Error struct {
	Type string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("decode %s: %v", e.Type, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

// Strategy turns a non-NULL binary payload into a Go value.
// raw must not be retained or modified.
type Strategy interface {
	Decode(d *Decoder, raw []byte) (any, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(d *Decoder, raw []byte) (any, error)

func (f StrategyFunc) Decode(d *Decoder, raw []byte) (any, error) { return f(d, raw) }

// Config is handed to New once and read by every decode call.
type Config struct {
	// Safety is attached to every decoded uuid.
	Safety Safety

	// NewIdentifier builds the value returned for a uuid column.
	// If nil, an Identifier is returned.
	NewIdentifier func(v Uint128, safety Safety) any

	Logger *slog.Logger
}

// Decoder maps declared type names to strategies. Unknown names fall back to
// the raw bytes. A Decoder is safe for concurrent use.
type Decoder struct {
	cfg Config
	log *slog.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy

	fallbacks sync.Map // type name -> *atomic.Int64
}

func New(cfg Config) *Decoder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Decoder{
		cfg:        cfg,
		log:        logger,
		strategies: make(map[string]Strategy),
	}
	registerBuiltins(d)
	return d
}

func (d *Decoder) Config() Config { return d.cfg }

// Register binds name to s. Registering a base type also binds its array
// type ("_" + name) to an ArrayStrategy over s.
func (d *Decoder) Register(name string, s Strategy) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.strategies[name] = s
	if !strings.HasPrefix(name, "_") {
		d.strategies["_"+name] = ArrayStrategy{Elem: s}
	}
}

// Lookup reports the strategy registered for name.
func (d *Decoder) Lookup(name string) (Strategy, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.strategies[name]
	return s, ok
}

// Decode never modifies v. NULL is checked before the declared type is
// looked at, so NULL decodes to nil for every type, registered or not.
func (d *Decoder) Decode(v record.WireValue) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	s, ok := d.Lookup(v.DeclaredType)
	if !ok {
		return d.fallback(v), nil
	}

	out, err := s.Decode(d, v.Raw)
	if err != nil {
		return nil, &Error{Type: v.DeclaredType, Err: err}
	}
	return out, nil
}

// fallback returns a copy of the payload and records the miss.
func (d *Decoder) fallback(v record.WireValue) []byte {
	c, _ := d.fallbacks.LoadOrStore(v.DeclaredType, new(atomic.Int64))
	n := c.(*atomic.Int64).Add(1)

	d.log.Debug("decode: unrecognized type, returning raw bytes",
		"type", v.DeclaredType,
		"len", len(v.Raw),
		"seen", n,
	)

	out := make([]byte, len(v.Raw))
	copy(out, v.Raw)
	return out
}

// Fallbacks returns how many times each unrecognized type name hit the raw
// bytes fallback.
func (d *Decoder) Fallbacks() map[string]int64 {
	out := make(map[string]int64)
	d.fallbacks.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}
