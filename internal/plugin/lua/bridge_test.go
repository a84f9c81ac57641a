package lua

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"
)

// roundTrip converts v to Lua and back inside s.
func roundTrip(t *testing.T, s *State, v any) any {
	t.Helper()
	var got any
	err := s.Do(context.Background(), func(L *lua.LState) error {
		got = s.Bridge().ToGoValue(s.Bridge().ToLuaValue(v))
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return got
}

func TestBridge_Values(t *testing.T) {
	s := newTestState(t)

	type profile struct {
		Name    string `json:"name"`
		Age     int    `json:"age,omitempty"`
		Secret  string `json:"-"`
		Visible bool
		hidden  int
	}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"int", 42, int64(42)},
		{"uint", uint(7), int64(7)},
		{"float", 1.5, 1.5},
		{"whole float", 2.0, int64(2)},
		{"string", "hi", "hi"},
		{"bytes", []byte("raw"), "raw"},
		{"slice", []any{"a", 1}, []any{"a", int64(1)}},
		{"string slice", []string{"x", "y"}, []any{"x", "y"}},
		{"map", map[string]any{"k": "v", "n": 3}, map[string]any{"k": "v", "n": int64(3)}},
		{"empty map", map[string]any{}, map[string]any{}},
		{"int map", map[string]int{"a": 1}, map[string]any{"a": int64(1)}},
		{"struct", profile{Name: "ann", Age: 30, Secret: "s", Visible: true, hidden: 1},
			map[string]any{"name": "ann", "age": int64(30), "Visible": true}},
		{"pointer", &profile{Name: "bob"}, map[string]any{"name": "bob", "age": int64(0), "Visible": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, s, tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBridge_TablesFromLua(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	err := s.DoString(ctx, `
		arr = {10, 20, 30}
		obj = {name = "x", list = {1, 2}}
		sparse = {[1] = "a", [3] = "c"}
		cyc = {}
		cyc.self = cyc
	`)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]any{}
	_ = s.Do(ctx, func(L *lua.LState) error {
		for _, name := range []string{"arr", "obj", "sparse", "cyc"} {
			got[name] = s.Bridge().ToGoValue(L.GetGlobal(name))
		}
		return nil
	})

	want := map[string]any{
		"arr":    []any{int64(10), int64(20), int64(30)},
		"obj":    map[string]any{"name": "x", "list": []any{int64(1), int64(2)}},
		"sparse": map[string]any{"1": "a", "3": "c"},
		"cyc":    map[string]any{"self": nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_CallFunc(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	if err := s.DoString(ctx, `function add(a, b) return a + b, "done" end`); err != nil {
		t.Fatal(err)
	}

	var results []any
	err := s.Do(ctx, func(L *lua.LState) error {
		fn := L.GetGlobal("add").(*lua.LFunction)
		var err error
		results, err = s.Bridge().CallFunc(fn, 2, 3)
		return err
	})
	if err != nil {
		t.Fatalf("CallFunc: %v", err)
	}
	if diff := cmp.Diff([]any{int64(5), "done"}, results); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_TableFields(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	if err := s.DoString(ctx, `spec = {path = "a.b", version = 2, ratio = 0.5, fn = function() end}`); err != nil {
		t.Fatal(err)
	}

	_ = s.Do(ctx, func(L *lua.LState) error {
		b := s.Bridge()
		tbl := L.GetGlobal("spec").(*lua.LTable)

		if v, ok := b.TableString(tbl, "path"); !ok || v != "a.b" {
			t.Errorf("TableString = %q, %v", v, ok)
		}
		if v, ok := b.TableInt(tbl, "version"); !ok || v != 2 {
			t.Errorf("TableInt = %d, %v", v, ok)
		}
		if _, ok := b.TableInt(tbl, "ratio"); ok {
			t.Error("TableInt accepted a fraction")
		}
		if _, ok := b.TableFunc(tbl, "fn"); !ok {
			t.Error("TableFunc did not find fn")
		}
		if _, ok := b.TableString(tbl, "missing"); ok {
			t.Error("TableString found a missing key")
		}
		return nil
	})
}

func TestBridge_IntegerBounds(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	if err := s.DoString(ctx, `big = 2^63; small = -2^63; huge = 2^64; edge = 2^53`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		global string
		want   any
	}{
		{"big", float64(1 << 63)},
		{"small", int64(math.MinInt64)},
		{"huge", float64(1 << 64)},
		{"edge", int64(1 << 53)},
	}

	_ = s.Do(ctx, func(L *lua.LState) error {
		for _, tt := range tests {
			got := s.Bridge().ToGoValue(L.GetGlobal(tt.global))
			if got != tt.want {
				t.Errorf("%s = %#v, want %#v", tt.global, got, tt.want)
			}
		}
		if _, ok := IntValue(lua.LNumber(math.Pow(2, 63))); ok {
			t.Error("IntValue accepted 2^63")
		}
		if v, ok := IntValue(lua.LNumber(-3)); !ok || v != -3 {
			t.Errorf("IntValue(-3) = %d, %v", v, ok)
		}
		return nil
	})
}
