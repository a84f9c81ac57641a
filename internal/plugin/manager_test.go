package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/pathrouter/internal/manifest"
	"github.com/dshills/pathrouter/internal/route"
)

// recorder collects manager events.
type recorder struct {
	mu     sync.Mutex
	events []ManagerEvent
}

func (r *recorder) handle(e ManagerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []ManagerEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]ManagerEventType, len(r.events))
	for i, e := range r.events {
		result[i] = e.Type
	}
	return result
}

func TestManager_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `router.handle("x", function() return "a" end)`)
	writeScript(t, dir, "b.lua", `router.handle("x", function() return "b" end)`)
	writeScript(t, dir, "broken.lua", `error("nope")`)

	mf := &manifest.Manifest{
		Path: filepath.Join(dir, "router.toml"),
		Plugins: []manifest.Plugin{
			{Name: "a", Script: "a.lua", Version: 1},
			{Name: "b", Script: "b.lua", Version: 2},
			{Name: "broken", Script: "broken.lua"},
		},
	}

	rec := &recorder{}
	m := NewManager(newRouter())
	m.OnEvent(rec.handle)
	t.Cleanup(func() { _ = m.Close() })

	err := m.LoadAll(context.Background(), mf)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected broken plugin failure, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, m.Plugins()); diff != "" {
		t.Errorf("plugins mismatch (-want +got):\n%s", diff)
	}
	wantEvents := []ManagerEventType{EventPluginLoaded, EventPluginLoaded, EventPluginError}
	if diff := cmp.Diff(wantEvents, rec.types()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	got, err := m.Router().Dispatch(context.Background(), "x", nil)
	if err != nil || got != "b" {
		t.Errorf("Dispatch = %v, %v, want b", got, err)
	}

	if _, err := m.Load(context.Background(), mf.Plugins[0], mf.ScriptPath(mf.Plugins[0])); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("expected ErrAlreadyLoaded, got %v", err)
	}

	host, ok := m.Host("a")
	if !ok {
		t.Fatal("plugin a not loaded")
	}
	if want := filepath.Join(dir, "a.lua"); host.Script() != want {
		t.Errorf("Script = %q, want %q", host.Script(), want)
	}
}

func TestManager_ApplyBlocked(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `router.handle("x", function() return "a" end)`)
	writeScript(t, dir, "b.lua", `router.handle("x", function() return "b" end)`)

	mf := &manifest.Manifest{
		Path:    filepath.Join(dir, "router.toml"),
		Blocked: []string{"b:x@2"},
		Plugins: []manifest.Plugin{
			{Name: "a", Script: "a.lua", Version: 1},
			{Name: "b", Script: "b.lua", Version: 2},
		},
	}

	m := NewManager(newRouter())
	t.Cleanup(func() { _ = m.Close() })

	if err := m.LoadAll(context.Background(), mf); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	m.Apply(mf)

	got, err := m.Router().Dispatch(context.Background(), "x", nil)
	if err != nil || got != "a" {
		t.Errorf("Dispatch = %v, %v, want a", got, err)
	}
	if !m.Router().IsBlocked("b:x@2") {
		t.Error("expected b:x@2 to be blocked")
	}
}

func TestManager_UnloadAndClose(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `router.handle("x", function() return "a" end)`)
	writeScript(t, dir, "b.lua", `router.handle("y", function() return "b" end)`)

	m := NewManager(newRouter())
	ctx := context.Background()

	if _, err := m.Load(ctx, manifest.Plugin{Name: "a"}, filepath.Join(dir, "a.lua")); err != nil {
		t.Fatalf("Load(a): %v", err)
	}
	if _, err := m.Load(ctx, manifest.Plugin{Name: "b"}, filepath.Join(dir, "b.lua")); err != nil {
		t.Fatalf("Load(b): %v", err)
	}

	if err := m.Unload("a"); err != nil {
		t.Fatalf("Unload(a): %v", err)
	}
	if err := m.Unload("a"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, m.Plugins()); diff != "" {
		t.Errorf("plugins mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.Router().Dispatch(ctx, "x", nil); !errors.Is(err, route.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(m.Plugins()); n != 0 {
		t.Errorf("expected no plugins after Close, got %d", n)
	}
	if n := m.Router().Stats().Registrations; n != 0 {
		t.Errorf("expected no registrations after Close, got %d", n)
	}
}

func TestManager_Sync(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `router.handle("x", function() return "a" end)`)
	writeScript(t, dir, "b.lua", `router.handle("x", function() return "b" end)`)
	writeScript(t, dir, "c.lua", `router.handle("x", function() return "c" end)`)

	path := filepath.Join(dir, "router.toml")
	m := NewManager(newRouter())
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	err := m.Sync(ctx, &manifest.Manifest{
		Path: path,
		Plugins: []manifest.Plugin{
			{Name: "a", Script: "a.lua", Version: 1},
			{Name: "b", Script: "b.lua", Version: 2},
		},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	hostA, _ := m.Host("a")

	err = m.Sync(ctx, &manifest.Manifest{
		Path:    path,
		Blocked: []string{"c:x@5"},
		Plugins: []manifest.Plugin{
			{Name: "a", Script: "a.lua", Version: 1},
			{Name: "c", Script: "c.lua", Version: 5},
		},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, m.Plugins()); diff != "" {
		t.Errorf("plugins mismatch (-want +got):\n%s", diff)
	}

	// Unchanged plugins are left alone.
	if sameA, _ := m.Host("a"); sameA != hostA {
		t.Error("unchanged plugin a was reloaded")
	}

	got, err := m.Router().Dispatch(ctx, "x", nil)
	if err != nil || got != "a" {
		t.Errorf("Dispatch = %v, %v, want a", got, err)
	}

	// A version change reloads the plugin.
	err = m.Sync(ctx, &manifest.Manifest{
		Path:    path,
		Plugins: []manifest.Plugin{{Name: "a", Script: "a.lua", Version: 9}},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	newA, _ := m.Host("a")
	if newA == hostA {
		t.Error("plugin a was not reloaded after a version change")
	}
	want := []HandlerInfo{{ID: "a:x@9", Path: "x", Version: 9}}
	if diff := cmp.Diff(want, newA.Handlers()); diff != "" {
		t.Errorf("handlers mismatch (-want +got):\n%s", diff)
	}
	if n := len(m.Router().Blocked()); n != 0 {
		t.Errorf("expected empty blocked set, got %d", n)
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `router.handle("x", function() return "a" end)`)
	writeScript(t, dir, "b.lua", `router.handle("x", function() return "b" end)`)

	path := writeScript(t, dir, "router.toml", `
[[plugin]]
name = "a"
script = "a.lua"
version = 1
`)

	loader := manifest.NewLoaderWithFS(manifest.OSFS{}, nil)
	mf, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rec := &recorder{}
	m := NewManager(newRouter(), WithDebounce(50*time.Millisecond))
	m.OnEvent(rec.handle)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Sync(ctx, mf); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, path) }()

	// Give the watcher time to subscribe.
	time.Sleep(100 * time.Millisecond)

	writeScript(t, dir, "router.toml", `
blocked = ["a:x@1"]

[[plugin]]
name = "a"
script = "a.lua"
version = 1

[[plugin]]
name = "b"
script = "b.lua"
`)

	waitFor(t, "manifest reload", func() bool {
		got, err := m.Router().Dispatch(context.Background(), "x", nil)
		return err == nil && got == "b"
	})

	// A broken manifest keeps the previous state.
	writeScript(t, dir, "router.toml", `blocked = [`)
	waitFor(t, "manifest error event", func() bool {
		for _, typ := range rec.types() {
			if typ == EventManifestError {
				return true
			}
		}
		return false
	})
	if diff := cmp.Diff([]string{"a", "b"}, m.Plugins()); diff != "" {
		t.Errorf("plugins mismatch (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

// waitFor polls cond until it holds or five seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestManagerEventType_String(t *testing.T) {
	tests := map[ManagerEventType]string{
		EventPluginLoaded:     "loaded",
		EventPluginUnloaded:   "unloaded",
		EventBlockedApplied:   "blocked",
		EventPluginError:      "error",
		EventManifestError:    "manifest-error",
		ManagerEventType(100): "unknown",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(typ), got, want)
		}
	}
}
