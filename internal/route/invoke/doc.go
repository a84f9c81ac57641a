// Package invoke runs a single handler call for the router.
//
// Calls happen outside the router's lock on the caller's goroutine.
// The executor checks the context before starting, times the call and,
// when recovery is enabled, turns a panic into a Result instead of
// unwinding through the dispatch loop.
//
//	exec := invoke.NewExecutor(invoke.WithPanicHandler(func(name string, v any, stack []byte) {
//	    log.Printf("panic in %s: %v\n%s", name, v, stack)
//	}))
//	res := invoke.Run(exec, ctx, "app.user@2", fn, param)
//	if res.Panicked {
//	    // handle
//	}
package invoke
