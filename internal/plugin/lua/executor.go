package lua

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// call is a Lua operation waiting for the worker.
type call struct {
	fn     func(L *lua.LState) error
	result chan error
}

// worker serializes all Lua operations through a single goroutine.
//
// gopher-lua's LState is not goroutine-safe. The worker marshals operations
// from any goroutine onto the one goroutine that owns the LState.
type worker struct {
	L     *lua.LState
	queue chan *call

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newWorker(L *lua.LState, queueSize int) *worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	w := &worker{
		L:       L,
		queue:   make(chan *call, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// run processes queued operations until close. It owns L and closes it on
// exit.
func (w *worker) run() {
	defer close(w.stopped)
	defer w.L.Close()

	for {
		select {
		case <-w.done:
			w.drain(ErrStateClosed)
			return
		case c := <-w.queue:
			c.result <- w.execute(c)
		}
	}
}

// wait waits for the result of a submitted operation.
func (w *worker) wait(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stopped:
		// The worker may have exited before picking the call up.
		select {
		case err := <-result:
			return err
		default:
			return ErrStateClosed
		}
	}
}

// execute runs one operation with panic recovery.
func (w *worker) execute(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = fmt.Errorf("lua panic: %w", v)
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()
	return c.fn(w.L)
}

// drain fails every queued operation with err.
func (w *worker) drain(err error) {
	for {
		select {
		case c := <-w.queue:
			c.result <- err
		default:
			return
		}
	}
}

// submit queues fn and returns the channel its result is sent on.
func (w *worker) submit(ctx context.Context, fn func(L *lua.LState) error) (<-chan error, error) {
	c := &call{
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case <-w.done:
		return nil, ErrStateClosed
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrStateClosed
	case w.queue <- c:
		return c.result, nil
	}
}

// close stops the worker and waits for it to exit. Queued operations fail
// with ErrStateClosed; the running one completes.
func (w *worker) close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
}

// isClosed reports whether close has been called.
func (w *worker) isClosed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
