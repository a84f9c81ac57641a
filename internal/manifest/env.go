package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PATHROUTER_"

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel   = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat  = EnvPrefix + "LOG_FORMAT"
	EnvBlocked    = EnvPrefix + "BLOCKED"
	EnvMaxVersion = EnvPrefix + "MAX_VERSION"
)

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides manifest fields from the process environment.
// Set but empty variables are treated as values, not as unset.
func (m *Manifest) ApplyEnv() error {
	return m.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides manifest fields using lookup.
func (m *Manifest) ApplyEnvFrom(lookup LookupFunc) error {
	if v, ok := lookup(EnvLogLevel); ok {
		m.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		m.Log.Format = v
	}
	if v, ok := lookup(EnvBlocked); ok {
		m.Blocked = splitList(v)
	}
	if v, ok := lookup(EnvMaxVersion); ok {
		ceiling, err := parseCeiling(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxVersion, err)
		}
		m.MaxVersion = ceiling
	}

	m.normalize()
	return nil
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// parseCeiling parses a version ceiling. "", "none" and "unbounded" clear it.
func parseCeiling(s string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unbounded":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, &ValidationError{Field: "max_version", Message: fmt.Sprintf("not an integer: %q", s)}
	}
	if n < 0 {
		return nil, &ValidationError{Field: "max_version", Message: "must not be negative"}
	}
	return &n, nil
}
