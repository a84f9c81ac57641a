package manifest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Manifest is the decoded router manifest.
type Manifest struct {
	// Log configures the process logger.
	Log Log `toml:"log" yaml:"log"`

	// Blocked lists handler identifiers that are never selected.
	Blocked []string `toml:"blocked" yaml:"blocked"`

	// MaxVersion is the default version ceiling; nil means unbounded.
	MaxVersion *int `toml:"max_version" yaml:"max_version"`

	// Plugins lists the Lua plugins to load, in load order.
	Plugins []Plugin `toml:"plugin" yaml:"plugin"`

	// Path is the file the manifest was read from. Empty when decoded
	// from memory.
	Path string `toml:"-" yaml:"-"`
}

// Log configures logging.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Plugin describes one Lua plugin.
type Plugin struct {
	// Name identifies the plugin and prefixes its default handler IDs.
	Name string `toml:"name" yaml:"name"`

	// Script is the path of the Lua source.
	Script string `toml:"script" yaml:"script"`

	// Version is the default version of the plugin's handlers.
	Version int `toml:"version" yaml:"version"`
}

// Default returns an empty manifest: info-level console logging, nothing
// blocked, no ceiling and no plugins.
func Default() *Manifest {
	return &Manifest{}
}

// Ceiling returns the configured version ceiling. ok is false when the
// manifest leaves dispatch unbounded.
func (m *Manifest) Ceiling() (ceiling uint, ok bool) {
	if m.MaxVersion == nil {
		return 0, false
	}
	return uint(*m.MaxVersion), true
}

// Dir returns the directory relative script paths are resolved against.
func (m *Manifest) Dir() string {
	if m.Path == "" {
		return "."
	}
	return filepath.Dir(m.Path)
}

// ScriptPath returns the resolved script path of p.
func (m *Manifest) ScriptPath(p Plugin) string {
	if filepath.IsAbs(p.Script) {
		return p.Script
	}
	return filepath.Join(m.Dir(), p.Script)
}

// Plugin returns the plugin with the given name.
func (m *Manifest) Plugin(name string) (Plugin, bool) {
	for _, p := range m.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// normalize trims identifiers and drops empty blocked entries.
func (m *Manifest) normalize() {
	blocked := m.Blocked[:0]
	for _, id := range m.Blocked {
		if id = strings.TrimSpace(id); id != "" {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) == 0 {
		blocked = nil
	}
	m.Blocked = blocked

	for i := range m.Plugins {
		m.Plugins[i].Name = strings.TrimSpace(m.Plugins[i].Name)
		m.Plugins[i].Script = strings.TrimSpace(m.Plugins[i].Script)
	}
}

// Validate checks the manifest. The returned error matches ErrInvalid.
func (m *Manifest) Validate() error {
	if m.MaxVersion != nil && *m.MaxVersion < 0 {
		return &ValidationError{Field: "max_version", Message: "must not be negative"}
	}

	seen := make(map[string]bool, len(m.Plugins))
	for i, p := range m.Plugins {
		field := fmt.Sprintf("plugin[%d]", i)
		switch {
		case p.Name == "":
			return &ValidationError{Field: field + ".name", Message: "is required"}
		case strings.ContainsAny(p.Name, ":@"):
			return &ValidationError{Field: field + ".name", Message: "must not contain ':' or '@'"}
		case seen[p.Name]:
			return &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate plugin %q", p.Name)}
		case p.Script == "":
			return &ValidationError{Field: field + ".script", Message: "is required"}
		case p.Version < 0:
			return &ValidationError{Field: field + ".version", Message: "must not be negative"}
		}
		seen[p.Name] = true
	}
	return nil
}

// BlockedEqual reports whether m and other block the same identifiers,
// ignoring order and duplicates.
func (m *Manifest) BlockedEqual(other *Manifest) bool {
	a := slices.Clone(m.Blocked)
	b := slices.Clone(other.Blocked)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}
