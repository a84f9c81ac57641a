package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single call into Lua.
const DefaultExecutionTimeout = 5 * time.Second

// State is a sandboxed Lua state owned by a worker goroutine.
// All methods are safe for concurrent use.
type State struct {
	worker *worker
	bridge *Bridge

	executionTimeout time.Duration
	queueSize        int
	print            PrintFunc
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for each call into Lua.
// Zero disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.executionTimeout = d
		}
	}
}

// WithQueueSize sets how many calls may wait for the worker.
func WithQueueSize(n int) StateOption {
	return func(s *State) {
		s.queueSize = n
	}
}

// WithPrint routes the output of Lua's print function to fn.
func WithPrint(fn PrintFunc) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	NewSandbox(L, s.print).Install()

	s.bridge = NewBridge(L)
	s.worker = newWorker(L, s.queueSize)
	return s, nil
}

// Do runs fn on the worker goroutine. fn sees a context-bound L: Lua code
// is aborted when ctx is done or the execution timeout elapses.
func (s *State) Do(ctx context.Context, fn func(L *lua.LState) error) error {
	runCtx := ctx
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}

	result, err := s.worker.submit(ctx, func(L *lua.LState) error {
		L.SetContext(runCtx)
		defer L.RemoveContext()

		// Leave the stack as we found it.
		top := L.GetTop()
		defer L.SetTop(top)

		return fn(L)
	})
	if err != nil {
		return err
	}

	err = s.worker.wait(ctx, result)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.Do(ctx, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.Do(ctx, func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// Bridge returns the value bridge for this state. Its methods may only be
// used inside Do.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.worker.isClosed()
}

// Close releases the Lua state. Pending calls fail with ErrStateClosed.
func (s *State) Close() error {
	s.worker.close()
	return nil
}
