package manifest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader reads manifests from a file system and applies environment
// overrides.
type Loader struct {
	fs     FileSystem
	lookup LookupFunc
}

// NewLoader creates a loader for the OS file system and environment.
func NewLoader() *Loader {
	return &Loader{
		fs:     OSFS{},
		lookup: os.LookupEnv,
	}
}

// NewLoaderWithFS creates a loader with a custom file system and
// environment lookup. A nil lookup disables environment overrides.
func NewLoaderWithFS(fsys FileSystem, lookup LookupFunc) *Loader {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return &Loader{
		fs:     fsys,
		lookup: lookup,
	}
}

// Load reads, decodes, overrides and validates the manifest at path.
func (l *Loader) Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	m, err := Decode(format, path, data)
	if err != nil {
		return nil, err
	}
	m.Path = path

	return l.finish(m)
}

// LoadFromReader reads a manifest of the given format from r.
func (l *Loader) LoadFromReader(format Format, r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Decode(format, "<reader>", data)
	if err != nil {
		return nil, err
	}
	return l.finish(m)
}

// Defaults returns the default manifest with environment overrides applied.
func (l *Loader) Defaults() (*Manifest, error) {
	return l.finish(Default())
}

func (l *Loader) finish(m *Manifest) (*Manifest, error) {
	if err := m.ApplyEnvFrom(l.lookup); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the manifest at path from the OS file system.
func Load(path string) (*Manifest, error) {
	return NewLoader().Load(path)
}
