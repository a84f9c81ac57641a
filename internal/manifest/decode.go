package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Decode decodes data in the given format. source names the data in
// error messages. Unknown keys are rejected.
func Decode(format Format, source string, data []byte) (*Manifest, error) {
	var (
		m   *Manifest
		err error
	)
	switch format {
	case FormatTOML:
		m, err = decodeTOML(source, data)
	case FormatYAML:
		m, err = decodeYAML(source, data)
	case FormatHCL:
		m, err = decodeHCL(source, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	m.normalize()
	return m, nil
}

func decodeTOML(source string, data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			perr.Message = serr.String()
		}
		return nil, perr
	}
	return &m, nil
}

func decodeYAML(source string, data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return &m, nil
}

// hclManifest mirrors Manifest with HCL block structure.
type hclManifest struct {
	Log        *hclLog      `hcl:"log,block"`
	Blocked    []string     `hcl:"blocked,optional"`
	MaxVersion *int         `hcl:"max_version,optional"`
	Plugins    []*hclPlugin `hcl:"plugin,block"`
}

type hclLog struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

type hclPlugin struct {
	Name    string `hcl:"name,label"`
	Script  string `hcl:"script"`
	Version int    `hcl:"version,optional"`
}

func decodeHCL(source string, data []byte) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, source)
	if diags.HasErrors() {
		return nil, diagError(source, diags)
	}

	var raw hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, diagError(source, diags)
	}

	m := &Manifest{
		Blocked:    raw.Blocked,
		MaxVersion: raw.MaxVersion,
	}
	if raw.Log != nil {
		m.Log = Log{Level: raw.Log.Level, Format: raw.Log.Format}
	}
	for _, p := range raw.Plugins {
		m.Plugins = append(m.Plugins, Plugin{Name: p.Name, Script: p.Script, Version: p.Version})
	}
	return m, nil
}

// diagError converts HCL diagnostics into a ParseError positioned at the
// first error.
func diagError(source string, diags hcl.Diagnostics) error {
	perr := &ParseError{Path: source, Message: diags.Error(), Err: diags}
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		perr.Message = d.Summary
		if d.Detail != "" {
			perr.Message += ": " + d.Detail
		}
		if d.Subject != nil {
			perr.Line = d.Subject.Start.Line
			perr.Column = d.Subject.Start.Column
		}
		break
	}
	return perr
}
