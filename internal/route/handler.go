package route

import (
	"context"

	"github.com/google/uuid"
)

// Handler is one registration: an identifier, the path it serves, its
// version and the call itself.
//
// ID must be unique per path; a second registration of the same ID at the
// same path is ignored. Version 0 conventionally marks a default handler;
// higher versions are preferred. Invoke may decline by returning an error
// that matches ErrNotFound.
type Handler[K comparable, P, R any] interface {
	ID() K
	Path() string
	Version() uint
	Invoke(ctx context.Context, param P) (R, error)
}

// Func adapts a plain function into a Handler.
type Func[K comparable, P, R any] struct {
	id      K
	path    string
	version uint
	fn      func(context.Context, P) (R, error)
}

// NewFunc creates a version 0 handler for path. A nil fn always declines.
func NewFunc[K comparable, P, R any](id K, path string, fn func(context.Context, P) (R, error)) *Func[K, P, R] {
	return &Func[K, P, R]{
		id:   id,
		path: path,
		fn:   fn,
	}
}

// NewGeneratedFunc is NewFunc with an identifier taken from gen.
func NewGeneratedFunc[K comparable, P, R any](gen IDGenerator[K], path string, fn func(context.Context, P) (R, error)) *Func[K, P, R] {
	return NewFunc(gen.NextID(), path, fn)
}

// WithVersion returns a copy of the handler with the given version.
func (f *Func[K, P, R]) WithVersion(version uint) *Func[K, P, R] {
	c := *f
	c.version = version
	return &c
}

// ID implements Handler.
func (f *Func[K, P, R]) ID() K {
	return f.id
}

// Path implements Handler.
func (f *Func[K, P, R]) Path() string {
	return f.path
}

// Version implements Handler.
func (f *Func[K, P, R]) Version() uint {
	return f.version
}

// Invoke implements Handler.
func (f *Func[K, P, R]) Invoke(ctx context.Context, param P) (R, error) {
	if f.fn == nil {
		var zero R
		return zero, ErrNotFound
	}
	return f.fn(ctx, param)
}

// Declining returns a function that always declines. It suits handlers that
// only exist to occupy a version or identifier slot.
func Declining[P, R any]() func(context.Context, P) (R, error) {
	return func(context.Context, P) (R, error) {
		var zero R
		return zero, ErrNotFound
	}
}

// IDGenerator produces handler identifiers. Implementations must not
// repeat an identifier for the lifetime of a router.
type IDGenerator[K comparable] interface {
	NextID() K
}

// IDGeneratorFunc adapts a function into an IDGenerator.
type IDGeneratorFunc[K comparable] func() K

// NextID implements IDGenerator.
func (f IDGeneratorFunc[K]) NextID() K {
	return f()
}

// UUIDGenerator produces random (version 4) UUID strings.
type UUIDGenerator struct{}

// NextID implements IDGenerator.
func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}
