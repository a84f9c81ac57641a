package route

import (
	"errors"
	"fmt"

	"github.com/dshills/pathrouter/internal/route/tree"
)

// Router errors.
var (
	// ErrNotFound is returned when no handler accepts a dispatch.
	// Handlers return it (or wrap it) to decline and pass the call on to
	// the next candidate.
	ErrNotFound = tree.ErrNotFound

	// ErrHandlerPanic matches a *PanicError with errors.Is.
	ErrHandlerPanic = errors.New("route: handler panic")
)

// PanicError reports a recovered handler panic.
type PanicError struct {
	// ID is the identifier of the handler that panicked.
	ID any

	// Path is the path the handler was registered at.
	Path string

	// Version is the handler's version.
	Version uint

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("route: handler %v at %s@%d panicked: %v", e.ID, e.Path, e.Version, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// IsDecline reports whether err is a decline (or a not-found outcome).
func IsDecline(err error) bool {
	return errors.Is(err, ErrNotFound)
}
