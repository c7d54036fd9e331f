package actor

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// Response is a struct used for handling responses in the actor system.
// It is registered as a process so that the target can reply to it.
type Response struct {
	engine  *Engine
	pid     *PID
	result  chan any
	timeout time.Duration
	// closed when the process the request was sent to stops.
	target   <-chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// NewResponse creates a Response that waits at most timeout for a reply.
// When target is closed before a reply arrives the Response resolves with
// ErrClosed.
func NewResponse(e *Engine, timeout time.Duration, target <-chan struct{}) *Response {
	return &Response{
		engine:  e,
		result:  make(chan any, 1),
		timeout: timeout,
		target:  target,
		done:    make(chan struct{}),
		pid:     NewPID(e.address, "response"+pidSeparator+strconv.FormatInt(rand.Int63(), 36)),
	}
}

// Result waits for the response message within the specified timeout and returns it.
// If the timeout is exceeded, it returns context.DeadlineExceeded. If the
// target stopped without replying, it returns ErrClosed.
func (r *Response) Result() (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer func() {
		cancel()
		r.Shutdown()
	}()

	select {
	case resp := <-r.result:
		return resp, nil
	case <-r.target:
		// the target may have replied right before it stopped.
		select {
		case resp := <-r.result:
			return resp, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send places a message into the response's result channel. Only the first
// reply is kept.
func (r *Response) Send(_ *PID, msg any, _ *PID) error {
	select {
	case r.result <- msg:
		return nil
	default:
		return ErrClosed
	}
}

// PID returns the unique identifier of the response.
func (r *Response) PID() *PID { return r.pid }

// Shutdown deregisters the response.
func (r *Response) Shutdown() {
	r.doneOnce.Do(func() {
		r.engine.Registry.Remove(r)
		close(r.done)
	})
}

func (r *Response) Done() <-chan struct{} { return r.done }

// Start is a placeholder function for the Response, it has no operation.
func (r *Response) Start() {}

// Invoke is a placeholder function for the Response, it has no operation.
func (r *Response) Invoke([]Envelope) {}
