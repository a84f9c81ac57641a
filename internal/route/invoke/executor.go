package invoke

import (
	"context"
	"runtime/debug"
	"time"
)

// Result is the outcome of one call.
type Result[R any] struct {
	// Value is the value returned by the handler.
	Value R

	// Err is the error returned by the handler, or the context error if
	// the call was skipped.
	Err error

	// Panicked is true if the handler panicked and the panic was recovered.
	Panicked bool

	// PanicValue is the value passed to panic().
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler ran.
	Duration time.Duration

	// Skipped is true if the handler was not called because the context
	// was already done.
	Skipped bool
}

// PanicHandler observes recovered panics. name identifies the handler.
type PanicHandler func(name string, panicValue any, stack []byte)

// Executor carries the call policy shared by every invocation.
type Executor struct {
	recover      bool
	panicHandler PanicHandler
}

// Option configures an Executor.
type Option func(*Executor)

// WithRecover enables or disables panic recovery. Enabled by default.
func WithRecover(enabled bool) Option {
	return func(e *Executor) {
		e.recover = enabled
	}
}

// WithPanicHandler sets a callback for recovered panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{recover: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run calls fn with param and reports the outcome.
// A nil executor behaves like NewExecutor().
func Run[P, R any](e *Executor, ctx context.Context, name string, fn func(context.Context, P) (R, error), param P) (result Result[R]) {
	if e == nil {
		e = NewExecutor()
	}

	select {
	case <-ctx.Done():
		return Result[R]{Err: ctx.Err(), Skipped: true}
	default:
	}

	start := time.Now()

	if e.recover {
		defer func() {
			result.Duration = time.Since(start)

			if r := recover(); r != nil {
				stack := debug.Stack()

				var zero R
				result.Value = zero
				result.Err = nil
				result.Panicked = true
				result.PanicValue = r
				result.PanicStack = stack

				if e.panicHandler != nil {
					func() {
						// A failing observer must not take the caller down.
						defer func() { _ = recover() }()
						e.panicHandler(name, r, stack)
					}()
				}
			}
		}()
	}

	result.Value, result.Err = fn(ctx, param)
	result.Duration = time.Since(start)
	return result
}
