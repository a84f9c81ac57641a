package route

import (
	"context"
	"sync"
)

var (
	defaultRouter     *Router[string, any, any]
	defaultRouterOnce sync.Once
)

// Default returns the process-wide router. It is created on first use with
// the default options.
func Default() *Router[string, any, any] {
	defaultRouterOnce.Do(func() {
		defaultRouter = New[string, any, any]()
	})
	return defaultRouter
}

// Register adds handlers to the default router.
func Register(handlers ...Handler[string, any, any]) {
	Default().Register(handlers...)
}

// Unregister removes handlers from the default router.
func Unregister(handlers ...Handler[string, any, any]) {
	Default().Unregister(handlers...)
}

// SetBlocked replaces the blocked set of the default router.
func SetBlocked(ids ...string) {
	Default().SetBlocked(ids...)
}

// Call dispatches on the default router.
func Call(ctx context.Context, path string, param any) (any, error) {
	return Default().Dispatch(ctx, path, param)
}

// CallVersion dispatches on the default router with a version ceiling.
func CallVersion(ctx context.Context, path string, param any, maxVersion uint) (any, error) {
	return Default().DispatchVersion(ctx, path, param, maxVersion)
}

// CallTarget dispatches on the default router to a single handler.
func CallTarget(ctx context.Context, path string, param any, id string) (any, error) {
	return Default().DispatchTarget(ctx, path, param, id)
}
