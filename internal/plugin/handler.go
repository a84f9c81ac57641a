package plugin

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/pathrouter/internal/plugin/lua"
	"github.com/dshills/pathrouter/internal/route"
	"github.com/dshills/pathrouter/internal/route/tree"
)

// Router is the router plugins register into.
type Router = route.Router[string, any, any]

// HandlerInfo describes a handler registered by a plugin.
type HandlerInfo struct {
	ID      string
	Path    string
	Version uint
}

// luaHandler is a route handler backed by a Lua function.
type luaHandler struct {
	id      string
	path    string
	version uint
	fn      *lua.LFunction
	host    *Host
}

// ID implements route.Handler.
func (lh *luaHandler) ID() string {
	return lh.id
}

// Path implements route.Handler.
func (lh *luaHandler) Path() string {
	return lh.path
}

// Version implements route.Handler.
func (lh *luaHandler) Version() uint {
	return lh.version
}

// Invoke implements route.Handler. The Lua function receives the parameter
// and may return a result, router.DECLINE, or nil plus an error value.
func (lh *luaHandler) Invoke(ctx context.Context, param any) (any, error) {
	state, decline := lh.host.runtime()
	if state == nil {
		return nil, route.ErrNotFound
	}

	var (
		result   any
		errValue any
		declined bool
	)
	err := state.Do(ctx, func(L *lua.LState) error {
		b := state.Bridge()

		L.Push(lh.fn)
		L.Push(b.ToLuaValue(param))
		if err := L.PCall(1, 2, nil); err != nil {
			return err
		}
		ret, rerr := L.Get(-2), L.Get(-1)
		L.Pop(2)

		if ud, ok := ret.(*lua.LUserData); ok && ud == decline {
			declined = true
			return nil
		}
		if rerr != lua.LNil {
			errValue = b.ToGoValue(rerr)
			return nil
		}
		result = b.ToGoValue(ret)
		return nil
	})

	switch {
	case errors.Is(err, plua.ErrStateClosed):
		// Unloaded while the dispatch was walking; let it continue.
		return nil, route.ErrNotFound
	case err != nil:
		return nil, &ScriptError{Plugin: lh.host.Name(), HandlerID: lh.id, Err: err}
	case declined:
		return nil, route.ErrNotFound
	case errValue != nil:
		return nil, &HandlerError{HandlerID: lh.id, Value: errValue}
	}
	return result, nil
}

// defaultID is the identifier of a handler registered without one.
func defaultID(plugin, path string, version uint) string {
	return fmt.Sprintf("%s:%s@%d", plugin, path, version)
}

// parseHandle reads the arguments of router.handle:
//
//	router.handle(path, fn)
//	router.handle(path, version, fn)
//	router.handle{path = ..., version = ..., id = ..., fn = ...}
func (h *Host) parseHandle(L *lua.LState, b *plua.Bridge) (*luaHandler, error) {
	lh := &luaHandler{
		version: h.version,
		host:    h,
	}

	switch arg := L.Get(1).(type) {
	case *lua.LTable:
		path, ok := b.TableString(arg, "path")
		if !ok {
			return nil, fmt.Errorf("%w: path must be a string", ErrInvalidHandler)
		}
		lh.path = path

		if v := arg.RawGetString("version"); v != lua.LNil {
			n, ok := b.TableInt(arg, "version")
			if !ok || n < 0 {
				return nil, fmt.Errorf("%w: version must be a non-negative integer", ErrInvalidHandler)
			}
			lh.version = uint(n)
		}

		if v := arg.RawGetString("id"); v != lua.LNil {
			id, ok := b.TableString(arg, "id")
			if !ok || id == "" {
				return nil, fmt.Errorf("%w: id must be a non-empty string", ErrInvalidHandler)
			}
			lh.id = id
		}

		fn, ok := b.TableFunc(arg, "fn")
		if !ok {
			return nil, fmt.Errorf("%w: fn must be a function", ErrInvalidHandler)
		}
		lh.fn = fn

	case lua.LString:
		lh.path = string(arg)
		fnArg := 2
		if n, ok := L.Get(2).(lua.LNumber); ok {
			v, ok := plua.IntValue(n)
			if !ok || v < 0 {
				return nil, fmt.Errorf("%w: version must be a non-negative integer", ErrInvalidHandler)
			}
			lh.version = uint(v)
			fnArg = 3
		}
		fn, ok := L.Get(fnArg).(*lua.LFunction)
		if !ok {
			return nil, fmt.Errorf("%w: fn must be a function", ErrInvalidHandler)
		}
		lh.fn = fn

	default:
		return nil, fmt.Errorf("%w: expected a path or a table, got %s", ErrInvalidHandler, L.Get(1).Type())
	}

	lh.path = tree.Normalize(lh.path)
	if lh.path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidHandler)
	}
	if lh.id == "" {
		lh.id = defaultID(h.name, lh.path, lh.version)
	}
	return lh, nil
}
