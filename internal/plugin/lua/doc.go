// Package lua provides the Lua runtime used by route plugins.
//
// It wraps gopher-lua with:
//   - a sandboxed state (base, table, string and math libraries only)
//   - a worker goroutine that owns the LState, so any goroutine may run Lua
//   - per-call execution timeouts enforced through the LState context
//   - a Go/Lua value bridge
//
// # State
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	err = state.Do(ctx, func(L *glua.LState) error {
//	    return L.DoString(`x = 1 + 1`)
//	})
//
// Every call to Do runs on the state's worker goroutine, one at a time.
// fn must not retain L after it returns and must not call Do itself.
//
// # Sandbox
//
// dofile, loadfile, load, loadstring and require are removed. print is
// routed to the function given with WithPrint.
//
// # Bridge
//
// The Bridge converts between Go and Lua values:
//
//	luaVal := bridge.ToLuaValue(map[string]any{"name": "test", "count": 42})
//	goVal := bridge.ToGoValue(luaVal)
//
// Tables with contiguous integer keys from 1 become []any; other tables
// become map[string]any. Whole numbers become int64.
package lua
