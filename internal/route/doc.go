// Package route is an in-process request router.
//
// Callers address handlers by a dotted path such as "app.user.profile",
// optionally capped by a version or narrowed to one identifier, and the
// router resolves the call to exactly one registered handler.
//
// # Resolution
//
// Handlers are stored in a path tree (see package tree). For a target path
// the router tries, in order:
//
//  1. every handler at the target path, highest version first
//  2. for each ancestor, nearest first: handlers at the ancestor's "*"
//     child, then handlers at the ancestor itself
//
// The first handler that is not blocked, passes the version ceiling (or
// the identifier filter) and does not decline wins. A handler declines by
// returning an error that matches ErrNotFound. Any other error ends the
// walk and is returned to the caller unchanged.
//
// A target path that was never registered (at itself or below) fails
// immediately with ErrNotFound. Unregistering the last handler at a path
// keeps the path's node, so fallback through it keeps working.
//
// # Usage
//
//	r := route.New[string, Request, Response](route.WithLogger(logger))
//
//	r.Register(
//	    route.NewFunc("profile-v1", "app.user.profile", profileV1),
//	    route.NewFunc("profile-v2", "app.user.profile", profileV2).WithVersion(2),
//	    route.NewFunc("user-default", "app.user.*", userFallback),
//	)
//
//	resp, err := r.Dispatch(ctx, "app.user.profile", req)           // v2
//	resp, err = r.DispatchVersion(ctx, "app.user.profile", req, 1)  // v1
//	resp, err = r.DispatchTarget(ctx, "app.user.profile", req, "user-default")
//
//	r.SetBlocked("profile-v2") // skip v2 without unregistering it
//
// # Concurrency
//
// Registration, unregistration, blocking and every resolution step are
// serialized by a single mutex owned by the Router. Handlers run after the
// mutex is released, on the caller's goroutine, so a slow handler never
// holds up other dispatches or registrations. A handler that is
// unregistered while it is running finishes normally.
//
// # Shared Router
//
// Default returns a process-wide Router[string, any, any]; Register,
// Unregister, Call, CallVersion, CallTarget and SetBlocked delegate to it.
package route
