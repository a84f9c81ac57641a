package manifest

import (
	"errors"
	"fmt"
)

// Errors returned by manifest operations.
var (
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("manifest: unsupported format")

	// ErrFileNotFound indicates the manifest file doesn't exist.
	ErrFileNotFound = errors.New("manifest: file not found")

	// ErrInvalid indicates a manifest that decoded but failed validation.
	ErrInvalid = errors.New("manifest: invalid")
)

// ParseError represents an error while decoding a manifest.
type ParseError struct {
	// Path is the file that failed to decode.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes one invalid manifest field.
type ValidationError struct {
	// Field is the offending field, e.g. "plugin[1].name".
	Field string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest: %s: %s", e.Field, e.Message)
}

// Is allows errors.Is to match ValidationError with ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
