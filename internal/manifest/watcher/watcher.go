// Package watcher reloads a manifest when its file changes.
//
// The watcher subscribes to the manifest's directory with fsnotify, so
// editors that replace the file through a rename are followed. Bursts of
// events are coalesced by a debounce window, after which the manifest is
// reloaded and delivered on Updates. Load failures are delivered on
// Errors and the last good manifest stays in effect for the consumer.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/pathrouter/internal/manifest"
)

// ErrPathNotExist is returned by New when the manifest file is missing.
var ErrPathNotExist = errors.New("path does not exist")

// Update is a reloaded manifest.
type Update struct {
	// Manifest is the freshly loaded manifest.
	Manifest *manifest.Manifest

	// Timestamp is when the reload completed.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// Events is the number of file events for the manifest.
	Events int64

	// Reloads is the number of successful reloads.
	Reloads int64

	// Errors is the number of failed reloads and fsnotify errors.
	Errors int64

	// LastError is the most recent error.
	LastError error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must be quiet before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLoader sets the manifest loader used for reloads.
func WithLoader(l *manifest.Loader) Option {
	return func(w *Watcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithBufferSize sets the capacity of the Updates and Errors channels.
func WithBufferSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// Watcher reloads one manifest file on change.
type Watcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	path    string

	loader   *manifest.Loader
	logger   *zap.Logger
	debounce time.Duration
	bufSize  int

	updates chan Update
	errors  chan error

	totalEvents  atomic.Int64
	totalReloads atomic.Int64
	totalErrors  atomic.Int64
	lastError    error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New starts watching the manifest at path. The file must exist.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		loader:   manifest.NewLoader(),
		logger:   zap.NewNop(),
		debounce: 100 * time.Millisecond,
		bufSize:  8,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.updates = make(chan Update, w.bufSize)
	w.errors = make(chan error, w.bufSize)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched manifest.
func (w *Watcher) Path() string {
	return w.path
}

// Updates returns the channel of reloaded manifests. It is closed by Close.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Errors returns the channel of reload errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	// Wait for processLoop to finish
	w.closedWg.Wait()

	close(w.updates)
	close(w.errors)

	return w.watcher.Close()
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		Events:    w.totalEvents.Load(),
		Reloads:   w.totalReloads.Load(),
		Errors:    w.totalErrors.Load(),
		LastError: w.lastError,
	}
}

// processLoop handles fsnotify events and the debounce timer.
func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.totalEvents.Add(1)
			w.logger.Debug("manifest changed",
				zap.String("path", w.path),
				zap.String("op", ev.Op.String()),
			)

			if w.debounce == 0 {
				w.reload()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

// relevant reports whether ev concerns the manifest file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Create) ||
		ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Rename) ||
		ev.Op.Has(fsnotify.Remove)
}

// reload loads the manifest and delivers the outcome.
func (w *Watcher) reload() {
	m, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("manifest reload failed", zap.String("path", w.path), zap.Error(err))
		w.recordError(err)
		w.sendError(err)
		return
	}

	w.totalReloads.Add(1)
	w.logger.Info("manifest reloaded", zap.String("path", w.path))
	w.sendUpdate(Update{Manifest: m, Timestamp: time.Now()})
}

// sendUpdate delivers u, discarding the oldest pending update if the
// channel is full.
func (w *Watcher) sendUpdate(u Update) {
	for {
		select {
		case w.updates <- u:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}

// sendError sends an error to the output channel.
func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Channel full, drop error
	}
}

// recordError records an error in stats.
func (w *Watcher) recordError(err error) {
	w.totalErrors.Add(1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
}
