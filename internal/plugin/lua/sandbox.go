package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are functions that could load code from outside the
// plugin script.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
}

// PrintFunc receives the output of the Lua print function.
type PrintFunc func(msg string)

// Sandbox restricts what Lua code can reach.
type Sandbox struct {
	L     *lua.LState
	print PrintFunc
}

// NewSandbox creates a sandbox for L. A nil print discards output.
func NewSandbox(L *lua.LState, print PrintFunc) *Sandbox {
	if print == nil {
		print = func(string) {}
	}
	return &Sandbox{L: L, print: print}
}

// Install opens the safe libraries and removes unsafe globals.
func (s *Sandbox) Install() {
	openSafeLibraries(s.L)

	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
}

// openSafeLibraries opens only safe Lua standard libraries.
// io, os, debug, package and channel are never opened.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// installPrint replaces print with one that forwards to the sandbox's
// PrintFunc.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		s.print(strings.Join(parts, "\t"))
		return 0
	}))
}
