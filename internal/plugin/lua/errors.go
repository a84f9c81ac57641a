package lua

import "errors"

var (
	// ErrStateClosed is returned by every operation on a closed State.
	ErrStateClosed = errors.New("lua: state closed")

	// ErrExecutionTimeout wraps errors of scripts that ran past the
	// state's execution timeout.
	ErrExecutionTimeout = errors.New("lua: execution timed out")
)
