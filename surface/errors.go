package surface

import (
	"errors"
	"strings"
)

// Kind categorises controller errors.
type Kind string

const (
	KindConfig    Kind = "config"     // malformed or contradictory Config
	KindAssetLoad Kind = "asset_load" // fetch or parse failure
	KindSurface   Kind = "surface"    // invalid or detached surface
	KindCanceled  Kind = "canceled"   // context canceled or load superseded
)

// Error is returned by every controller operation.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("surface: ")
	if e.Op != "" {
		b.WriteByte('[')
		b.WriteString(e.Op)
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConfig)
// holds for every configuration error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrConfig    = &Error{Kind: KindConfig}
	ErrAssetLoad = &Error{Kind: KindAssetLoad}
	ErrSurface   = &Error{Kind: KindSurface}
	ErrCanceled  = &Error{Kind: KindCanceled}

	// ErrDisposed is the cause of config errors raised by a disposed handle.
	ErrDisposed = errors.New("handle disposed")
	// ErrSuperseded is the cause when a newer Load claimed the surface.
	ErrSuperseded = errors.New("superseded by a newer load")
)

func newError(kind Kind, op string, cause error, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Cause: cause}
}
