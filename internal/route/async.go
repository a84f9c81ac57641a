package route

import "context"

// DispatchAsync runs Dispatch on a new goroutine and passes the outcome to
// cb. The returned channel is closed once cb has returned; cb may be nil.
func (r *Router[K, P, R]) DispatchAsync(ctx context.Context, path string, param P, cb func(R, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := r.Dispatch(ctx, path, param)
		if cb != nil {
			cb(result, err)
		}
	}()
	return done
}
