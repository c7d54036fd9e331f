package actor

import (
	"github.com/anthdm/relay/log"
)

type Context struct {
	pid      *PID
	sender   *PID
	engine   *Engine
	receiver Receiver
	message  any
	// set by Stop, checked by the process after the current message.
	stopping bool
}

func newContext(e *Engine, pid *PID) *Context {
	return &Context{
		engine: e,
		pid:    pid,
	}
}

// Respond sends msg to the sender of the current message. For requests the
// sender is the pending Response.
func (c *Context) Respond(msg any) {
	if c.sender == nil {
		log.Warnw("[RESPOND] context got no sender", log.M{
			"pid": c.PID(),
		})
		return
	}
	if err := c.engine.Send(c.sender, msg); err != nil {
		log.Debugw("[RESPOND] sender is gone", log.M{
			"pid":    c.PID(),
			"sender": c.sender,
		})
	}
}

// Send will send the given message to the given PID.
// This will also set the sender of the message to
// the PID of the current Context. Hence, the receiver
// of the message can call Context.Sender() to know
// the PID of the process that sent this message.
func (c *Context) Send(pid *PID, msg any) error {
	return c.engine.SendWithSender(pid, msg, c.pid)
}

// Stop terminates the process once the current message has been handled.
// Messages still queued are dropped and later sends fail with ErrClosed.
// Unlike Engine.Poison it never waits on the process's own inbox.
func (c *Context) Stop() {
	c.stopping = true
}

func (c *Context) PID() *PID {
	return c.pid
}

func (c *Context) Sender() *PID {
	return c.sender
}

func (c *Context) Engine() *Engine {
	return c.engine
}

func (c *Context) Receiver() Receiver {
	return c.receiver
}

func (c *Context) Message() any {
	return c.message
}
