package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrAlreadyLoaded is returned when attempting to load an already loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when attempting to use an unloaded plugin.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrInvalidHandler is returned when a script registers a malformed handler.
	ErrInvalidHandler = errors.New("invalid plugin handler")
)

// ScriptError is a Lua failure while running a plugin handler.
type ScriptError struct {
	// Plugin is the plugin name.
	Plugin string

	// HandlerID is the identifier of the failing handler.
	HandlerID string

	// Err is the underlying Lua error.
	Err error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("plugin %s: handler %s: %v", e.Plugin, e.HandlerID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// HandlerError is an error returned by a Lua handler as its second result.
type HandlerError struct {
	// HandlerID is the identifier of the handler.
	HandlerID string

	// Value is the Go form of the returned error value.
	Value any
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.HandlerID, e.Value)
}
