package route

import (
	"github.com/dshills/pathrouter/internal/route/invoke"
	"go.uber.org/zap"
)

// PanicHandler observes recovered handler panics.
type PanicHandler = invoke.PanicHandler

// Option configures a Router.
type Option func(*config)

// config contains configuration for a router.
type config struct {
	// logger receives registration and dispatch diagnostics.
	logger *zap.Logger

	// recoverPanics turns handler panics into *PanicError.
	recoverPanics bool

	// panicHandler is called for every recovered panic.
	panicHandler PanicHandler

	// pathCacheSize bounds the split-path cache; 0 disables it.
	pathCacheSize int
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() config {
	return config{
		logger:        zap.NewNop(),
		recoverPanics: true,
		pathCacheSize: 0,
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPanicRecovery enables or disables handler panic recovery.
// With recovery disabled a handler panic unwinds through Dispatch.
func WithPanicRecovery(enabled bool) Option {
	return func(c *config) {
		c.recoverPanics = enabled
	}
}

// WithPanicHandler sets a callback for recovered handler panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) {
		c.panicHandler = h
	}
}

// WithPathCache caches the segments of up to size dispatched paths.
func WithPathCache(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.pathCacheSize = size
		}
	}
}
