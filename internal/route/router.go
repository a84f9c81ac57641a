package route

import (
	"context"
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/dshills/pathrouter/internal/route/invoke"
	"github.com/dshills/pathrouter/internal/route/tree"
)

// Unbounded is the version ceiling used when none is given.
const Unbounded uint = math.MaxUint

// CandidateInfo describes one step of a resolution walk.
type CandidateInfo[K comparable] struct {
	ID      K
	Path    string
	Version uint
	Blocked bool
}

// Router resolves dotted paths to versioned handlers.
// A Router is safe for concurrent use.
type Router[K comparable, P, R any] struct {
	registry *registry[K, P, R]
	executor *invoke.Executor
	paths    *lru.Cache

	config config
	logger *zap.Logger

	stats counters
}

// New creates a router with the given options.
func New[K comparable, P, R any](opts ...Option) *Router[K, P, R] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Router[K, P, R]{
		registry: newRegistry[K, P, R](),
		config:   cfg,
		logger:   cfg.logger,
	}

	r.executor = invoke.NewExecutor(
		invoke.WithRecover(cfg.recoverPanics),
		invoke.WithPanicHandler(func(name string, v any, stack []byte) {
			r.logger.Warn("handler panicked",
				zap.String("handler", name),
				zap.Any("panic", v),
				zap.ByteString("stack", stack),
			)
			if cfg.panicHandler != nil {
				cfg.panicHandler(name, v, stack)
			}
		}),
	)

	if cfg.pathCacheSize > 0 {
		// lru.New only fails for a non-positive size.
		cache, err := lru.New(cfg.pathCacheSize)
		if err == nil {
			r.paths = cache
		}
	}

	return r
}

// split returns the segments of path, using the path cache if enabled.
func (r *Router[K, P, R]) split(path string) []string {
	if r.paths == nil {
		return tree.Split(path)
	}
	if v, ok := r.paths.Get(path); ok {
		return v.([]string)
	}
	segments := tree.Split(path)
	r.paths.Add(path, segments)
	return segments
}

// Register adds handlers. A handler whose path has no segments is ignored,
// as is a handler whose ID is already registered at its path.
func (r *Router[K, P, R]) Register(handlers ...Handler[K, P, R]) {
	for _, h := range handlers {
		if h == nil {
			continue
		}

		segments := r.split(h.Path())
		reg := registration[K, P, R]{
			id:      h.ID(),
			path:    tree.Join(segments...),
			version: h.Version(),
			handler: h,
		}

		added, err := r.registry.add(segments, reg)
		switch {
		case err != nil:
			r.logger.Debug("ignoring handler with malformed path",
				zap.Any("id", reg.id),
				zap.String("path", h.Path()),
			)
		case !added:
			r.logger.Debug("handler already registered",
				zap.Any("id", reg.id),
				zap.String("path", reg.path),
			)
		default:
			r.logger.Debug("registered handler",
				zap.Any("id", reg.id),
				zap.String("path", reg.path),
				zap.Uint("version", reg.version),
			)
		}
	}
}

// Unregister removes handlers by path and ID. Unknown handlers are ignored.
// Path nodes are kept even when they become empty.
func (r *Router[K, P, R]) Unregister(handlers ...Handler[K, P, R]) {
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if r.registry.remove(r.split(h.Path()), h.ID()) {
			r.logger.Debug("unregistered handler",
				zap.Any("id", h.ID()),
				zap.String("path", tree.Normalize(h.Path())),
			)
		}
	}
}

// Handlers returns the handlers registered exactly at path, ascending by
// version.
func (r *Router[K, P, R]) Handlers(path string) []Handler[K, P, R] {
	entries := r.registry.entries(r.split(path))
	if len(entries) == 0 {
		return nil
	}
	result := make([]Handler[K, P, R], len(entries))
	for i, e := range entries {
		result[i] = e.handler
	}
	return result
}

// SetBlocked replaces the blocked set. Blocked handlers stay registered
// but are never selected.
func (r *Router[K, P, R]) SetBlocked(ids ...K) {
	r.registry.setBlocked(ids)
	r.logger.Debug("blocked set replaced", zap.Int("count", len(ids)))
}

// Blocked returns the blocked identifiers in no particular order.
func (r *Router[K, P, R]) Blocked() []K {
	return r.registry.blockedIDs()
}

// IsBlocked reports whether id is blocked.
func (r *Router[K, P, R]) IsBlocked(id K) bool {
	return r.registry.isBlocked(id)
}

// Dispatch calls the newest handler for path that accepts param.
func (r *Router[K, P, R]) Dispatch(ctx context.Context, path string, param P) (R, error) {
	return r.dispatch(ctx, path, param, Unbounded, nil)
}

// DispatchVersion is Dispatch restricted to handlers with a version no
// greater than maxVersion.
func (r *Router[K, P, R]) DispatchVersion(ctx context.Context, path string, param P, maxVersion uint) (R, error) {
	return r.dispatch(ctx, path, param, maxVersion, nil)
}

// DispatchTarget calls only the handler identified by id, provided it is
// reached while walking the resolution order of path. Its result or error,
// including a decline, is returned as is.
func (r *Router[K, P, R]) DispatchTarget(ctx context.Context, path string, param P, id K) (R, error) {
	return r.dispatch(ctx, path, param, Unbounded, &id)
}

// dispatch is the core dispatch loop.
func (r *Router[K, P, R]) dispatch(ctx context.Context, path string, param P, maxVersion uint, target *K) (R, error) {
	r.stats.dispatched.Add(1)

	var (
		zero     R
		segments = r.split(path)
		cursor   *tree.Candidate[K, registration[K, P, R]]
	)

	for {
		cand, err := r.registry.next(segments, cursor)
		if err != nil {
			r.stats.notFound.Add(1)
			r.logger.Debug("no handler accepted dispatch", zap.String("path", path))
			return zero, err
		}
		cursor = &cand
		reg := cand.Entry

		if r.registry.isBlocked(reg.id) {
			r.stats.blocked.Add(1)
			r.logger.Debug("skipping blocked handler",
				zap.Any("id", reg.id),
				zap.String("path", reg.path),
			)
			continue
		}

		if target != nil {
			if reg.id != *target {
				r.stats.filtered.Add(1)
				continue
			}
			return r.invoke(ctx, reg, param)
		}

		if reg.version > maxVersion {
			r.stats.filtered.Add(1)
			continue
		}

		result, err := r.invoke(ctx, reg, param)
		if err != nil && IsDecline(err) {
			r.logger.Debug("handler declined",
				zap.Any("id", reg.id),
				zap.String("path", reg.path),
				zap.Uint("version", reg.version),
			)
			continue
		}
		return result, err
	}
}

// invoke runs one registration outside the registry lock.
func (r *Router[K, P, R]) invoke(ctx context.Context, reg registration[K, P, R], param P) (R, error) {
	res := invoke.Run(r.executor, ctx, reg.path, reg.handler.Invoke, param)
	if res.Skipped {
		return res.Value, res.Err
	}

	r.stats.invoked.Add(1)

	if ce := r.logger.Check(zap.DebugLevel, "handler returned"); ce != nil {
		ce.Write(
			zap.Any("id", reg.id),
			zap.String("path", reg.path),
			zap.Uint("version", reg.version),
			zap.Duration("duration", res.Duration),
			zap.Bool("panicked", res.Panicked),
			zap.Error(res.Err),
		)
	}

	switch {
	case res.Panicked:
		r.stats.panicked.Add(1)
		return res.Value, &PanicError{
			ID:      reg.id,
			Path:    reg.path,
			Version: reg.version,
			Value:   res.PanicValue,
			Stack:   res.PanicStack,
		}
	case res.Err == nil:
		r.stats.succeeded.Add(1)
	case errors.Is(res.Err, ErrNotFound):
		r.stats.declined.Add(1)
	default:
		r.stats.failed.Add(1)
	}
	return res.Value, res.Err
}

// Candidates returns the full resolution order of path, ignoring the
// blocked set, version ceilings and declines. Blocked candidates are
// flagged. It fails with ErrNotFound if path was never registered.
func (r *Router[K, P, R]) Candidates(path string) ([]CandidateInfo[K], error) {
	return r.registry.candidates(r.split(path))
}

// Stats returns current router statistics.
func (r *Router[K, P, R]) Stats() Stats {
	registrations, paths, blocked := r.registry.counts()

	return Stats{
		Dispatched:    r.stats.dispatched.Load(),
		Invoked:       r.stats.invoked.Load(),
		Succeeded:     r.stats.succeeded.Load(),
		Declined:      r.stats.declined.Load(),
		Failed:        r.stats.failed.Load(),
		Panicked:      r.stats.panicked.Load(),
		Blocked:       r.stats.blocked.Load(),
		Filtered:      r.stats.filtered.Load(),
		NotFound:      r.stats.notFound.Load(),
		Registrations: registrations,
		Paths:         paths,
		BlockedIDs:    blocked,
	}
}
