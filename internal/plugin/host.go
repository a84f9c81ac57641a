package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/pathrouter/internal/manifest"
	plua "github.com/dshills/pathrouter/internal/plugin/lua"
)

// Host manages a single plugin's Lua state and the handlers it registered.
type Host struct {
	mu sync.RWMutex

	// Identity
	name    string
	script  string
	version uint

	router *Router
	logger *zap.Logger

	// Lua runtime
	state   *plua.State
	decline *lua.LUserData

	// State
	pluginState State
	err         error

	// regMu guards live and handlers. It is held across router
	// registration so that Unload cannot interleave with it.
	regMu sync.Mutex

	// live is set once the script has run; later router.handle calls
	// register immediately.
	live bool

	// Registered handlers, in registration order
	handlers []*luaHandler

	// Options
	executionTimeout time.Duration
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// WithHostLogger sets the host's logger.
func WithHostLogger(logger *zap.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHost creates a host for the plugin described by spec, whose script
// lives at script. Handlers are registered into r.
func NewHost(spec manifest.Plugin, script string, r *Router, opts ...HostOption) *Host {
	h := &Host{
		name:             spec.Name,
		script:           script,
		version:          uint(max(spec.Version, 0)),
		router:           r,
		logger:           zap.NewNop(),
		pluginState:      StateUnloaded,
		executionTimeout: plua.DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("plugin", h.name))
	return h
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Script returns the path of the plugin script.
func (h *Host) Script() string {
	return h.script
}

// Version returns the default version of the plugin's handlers.
func (h *Host) Version() uint {
	return h.version
}

// State returns the current plugin state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

// Error returns the error of the last failed load.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Handlers returns the handlers the plugin registered.
func (h *Host) Handlers() []HandlerInfo {
	h.regMu.Lock()
	defer h.regMu.Unlock()

	result := make([]HandlerInfo, len(h.handlers))
	for i, lh := range h.handlers {
		result[i] = HandlerInfo{ID: lh.id, Path: lh.path, Version: lh.version}
	}
	return result
}

// runtime returns the Lua state and decline sentinel, or nil if the
// plugin is not loaded.
func (h *Host) runtime() (*plua.State, *lua.LUserData) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state, h.decline
}

// Load runs the plugin script and registers the handlers it declares.
// Handlers are registered only if the whole script succeeds.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateLoaded {
		return ErrAlreadyLoaded
	}

	state, err := plua.NewState(
		plua.WithExecutionTimeout(h.executionTimeout),
		plua.WithPrint(func(msg string) {
			h.logger.Info("lua print", zap.String("msg", msg))
		}),
	)
	if err != nil {
		return h.fail(err)
	}

	var pending []*luaHandler
	err = state.Do(ctx, func(L *lua.LState) error {
		h.installModule(L, state.Bridge(), &pending)
		return nil
	})
	if err == nil {
		err = state.DoFile(ctx, h.script)
	}
	if err != nil {
		_ = state.Close()
		h.decline = nil
		return h.fail(err)
	}

	h.state = state
	h.regMu.Lock()
	for _, lh := range pending {
		h.registerLocked(lh)
	}
	h.live = true
	h.regMu.Unlock()
	h.pluginState = StateLoaded
	h.err = nil

	h.logger.Info("plugin loaded",
		zap.String("script", h.script),
		zap.Int("handlers", len(pending)),
	)
	return nil
}

// fail records a load failure. Called with h.mu held.
func (h *Host) fail(err error) error {
	h.pluginState = StateError
	h.err = fmt.Errorf("loading plugin %s: %w", h.name, err)
	h.logger.Warn("plugin failed to load", zap.Error(err))
	return h.err
}

// Unload unregisters every handler of the plugin and closes its state.
func (h *Host) Unload() error {
	h.mu.Lock()
	if h.pluginState != StateLoaded {
		h.mu.Unlock()
		return ErrNotLoaded
	}
	h.regMu.Lock()
	h.live = false
	for _, lh := range h.handlers {
		h.router.Unregister(lh)
	}
	count := len(h.handlers)
	h.handlers = nil
	h.regMu.Unlock()

	state := h.state
	h.state = nil
	h.decline = nil
	h.pluginState = StateUnloaded
	h.mu.Unlock()

	h.logger.Info("plugin unloaded", zap.Int("handlers", count))
	return state.Close()
}

// registerLive registers lh if the plugin is loaded. It reports false
// while the script is still running or after Unload.
func (h *Host) registerLive(lh *luaHandler) bool {
	h.regMu.Lock()
	defer h.regMu.Unlock()

	if !h.live {
		return false
	}
	h.registerLocked(lh)
	return true
}

// registerLocked adds lh to the router and tracks it if the router
// accepted it. Called with h.regMu held.
func (h *Host) registerLocked(lh *luaHandler) {
	h.router.Register(lh)

	// The router keeps the first registration of an ID at a path, which
	// may belong to someone else.
	for _, existing := range h.router.Handlers(lh.path) {
		if existing == lh {
			h.handlers = append(h.handlers, lh)
			return
		}
	}
	h.logger.Warn("handler id already taken",
		zap.String("id", lh.id),
		zap.String("path", lh.path),
	)
}

// installModule exposes the router module to the script. Handlers declared
// while the script runs are collected into pending.
func (h *Host) installModule(L *lua.LState, b *plua.Bridge, pending *[]*luaHandler) {
	h.decline = L.NewUserData()
	h.decline.Value = "DECLINE"

	mod := L.NewTable()
	L.SetField(mod, "DECLINE", h.decline)
	L.SetField(mod, "plugin", lua.LString(h.name))
	L.SetField(mod, "version", lua.LNumber(h.version))
	L.SetField(mod, "handle", L.NewFunction(func(L *lua.LState) int {
		lh, err := h.parseHandle(L, b)
		if err != nil {
			L.RaiseError("router.handle: %v", err)
			return 0
		}

		if !h.registerLive(lh) {
			for _, p := range *pending {
				if p.id == lh.id && p.path == lh.path {
					L.RaiseError("router.handle: duplicate handler %q at %s", lh.id, lh.path)
					return 0
				}
			}
			*pending = append(*pending, lh)
		}

		L.Push(lua.LString(lh.id))
		return 1
	}))
	L.SetGlobal("router", mod)
}
