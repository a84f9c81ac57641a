package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/pathrouter/internal/manifest"
	"github.com/dshills/pathrouter/internal/manifest/watcher"
)

// Manager manages the lifecycle of all plugins of one router.
type Manager struct {
	mu sync.Mutex

	router *Router
	logger *zap.Logger

	// Loaded plugins by name
	plugins map[string]*Host

	// Plugin load order (for deterministic iteration)
	loadOrder []string

	// Event handlers
	handlersMu    sync.RWMutex
	eventHandlers []EventHandler

	executionTimeout time.Duration
	debounce         time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger. Hosts log through a child logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithExecutionTimeout sets the Lua execution timeout of every plugin.
func WithExecutionTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.executionTimeout = d
	}
}

// WithDebounce sets the manifest watcher debounce used by Watch.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.debounce = d
	}
}

// EventHandler handles plugin manager events.
// Handlers must be non-blocking and should not call back into the Manager
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded is emitted when a plugin is unloaded.
	EventPluginUnloaded
	// EventBlockedApplied is emitted when a manifest's blocked set is applied.
	EventBlockedApplied
	// EventPluginError is emitted when a plugin fails to load.
	EventPluginError
	// EventManifestError is emitted when a watched manifest fails to reload.
	EventManifestError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventBlockedApplied:
		return "blocked"
	case EventPluginError:
		return "error"
	case EventManifestError:
		return "manifest-error"
	default:
		return "unknown"
	}
}

// NewManager creates a plugin manager that registers into r.
func NewManager(r *Router, opts ...ManagerOption) *Manager {
	m := &Manager{
		router:           r,
		logger:           zap.NewNop(),
		plugins:          make(map[string]*Host),
		executionTimeout: 5 * time.Second,
		debounce:         100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Router returns the router plugins register into.
func (m *Manager) Router() *Router {
	return m.router
}

// Load loads a plugin.
// If the plugin is already loaded, returns ErrAlreadyLoaded.
func (m *Manager) Load(ctx context.Context, spec manifest.Plugin, script string) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loadLocked(ctx, spec, script)
}

func (m *Manager) loadLocked(ctx context.Context, spec manifest.Plugin, script string) (*Host, error) {
	if _, exists := m.plugins[spec.Name]; exists {
		return nil, fmt.Errorf("plugin %q: %w", spec.Name, ErrAlreadyLoaded)
	}

	host := NewHost(spec, script, m.router,
		WithHostExecutionTimeout(m.executionTimeout),
		WithHostLogger(m.logger),
	)
	if err := host.Load(ctx); err != nil {
		m.emit(ManagerEvent{Type: EventPluginError, Plugin: spec.Name, Error: err})
		return nil, err
	}

	m.plugins[spec.Name] = host
	m.loadOrder = append(m.loadOrder, spec.Name)
	m.emit(ManagerEvent{Type: EventPluginLoaded, Plugin: spec.Name})
	return host, nil
}

// Unload unloads a plugin by name.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.unloadLocked(name)
}

func (m *Manager) unloadLocked(name string) error {
	host, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}

	err := host.Unload()

	delete(m.plugins, name)
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			break
		}
	}

	m.emit(ManagerEvent{Type: EventPluginUnloaded, Plugin: name, Error: err})
	return err
}

// LoadAll loads every plugin of mf in order. A failing plugin does not
// stop the others; all failures are returned joined.
func (m *Manager) LoadAll(ctx context.Context, mf *manifest.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, p := range mf.Plugins {
		if _, err := m.loadLocked(ctx, p, mf.ScriptPath(p)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Apply replaces the router's blocked set with the manifest's.
func (m *Manager) Apply(mf *manifest.Manifest) {
	m.router.SetBlocked(mf.Blocked...)
	m.logger.Info("blocked set applied", zap.Strings("blocked", mf.Blocked))
	m.emit(ManagerEvent{Type: EventBlockedApplied})
}

// Sync brings the manager in line with mf: the blocked set is applied,
// plugins missing from mf are unloaded, new plugins are loaded and
// plugins whose script or version changed are reloaded.
func (m *Manager) Sync(ctx context.Context, mf *manifest.Manifest) error {
	m.Apply(mf)

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	for _, name := range append([]string(nil), m.loadOrder...) {
		host := m.plugins[name]
		p, keep := mf.Plugin(name)
		if keep && host.Script() == mf.ScriptPath(p) && host.Version() == uint(max(p.Version, 0)) {
			continue
		}
		if err := m.unloadLocked(name); err != nil {
			errs = append(errs, err)
		}
	}

	for _, p := range mf.Plugins {
		if _, loaded := m.plugins[p.Name]; loaded {
			continue
		}
		if _, err := m.loadLocked(ctx, p, mf.ScriptPath(p)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Watch keeps the manager in sync with the manifest at path until ctx is
// done. Reload failures are logged and emitted; the previous state stays
// in effect.
func (m *Manager) Watch(ctx context.Context, path string, opts ...watcher.Option) error {
	opts = append([]watcher.Option{
		watcher.WithLogger(m.logger),
		watcher.WithDebounce(m.debounce),
	}, opts...)

	w, err := watcher.New(path, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-w.Updates():
			if !ok {
				return nil
			}
			if err := m.Sync(ctx, u.Manifest); err != nil {
				m.logger.Warn("manifest sync incomplete", zap.Error(err))
			}

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			m.emit(ManagerEvent{Type: EventManifestError, Error: err})
		}
	}
}

// Host returns a loaded plugin by name.
func (m *Manager) Host(name string) (*Host, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	host, ok := m.plugins[name]
	return host, ok
}

// Plugins returns the names of loaded plugins in load order.
func (m *Manager) Plugins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.loadOrder...)
}

// Close unloads every plugin in reverse load order.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.loadOrder) - 1; i >= 0; i-- {
		if err := m.unloadLocked(m.loadOrder[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnEvent registers a handler for manager events.
func (m *Manager) OnEvent(handler EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.eventHandlers = append(m.eventHandlers, handler)
}

// emit sends an event to all handlers.
func (m *Manager) emit(event ManagerEvent) {
	m.handlersMu.RLock()
	handlers := append([]EventHandler(nil), m.eventHandlers...)
	m.handlersMu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() { _ = recover() }()
			handler(event)
		}()
	}
}
