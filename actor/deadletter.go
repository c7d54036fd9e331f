package actor

import (
	"reflect"

	"github.com/anthdm/relay/log"
)

// deadLetter receives every message addressed to an unregistered PID. It
// publishes a DeadLetterEvent and reports ErrClosed to the sender.
type deadLetter struct {
	engine *Engine
	pid    *PID
	done   chan struct{}
}

func newDeadLetter(e *Engine) *deadLetter {
	done := make(chan struct{})
	close(done)
	return &deadLetter{
		engine: e,
		pid:    NewPID(e.address, "deadletter"),
		done:   done,
	}
}

func (d *deadLetter) PID() *PID             { return d.pid }
func (d *deadLetter) Start()                {}
func (d *deadLetter) Shutdown()             {}
func (d *deadLetter) Invoke([]Envelope)     {}
func (d *deadLetter) Done() <-chan struct{} { return d.done }

func (d *deadLetter) Send(dest *PID, msg any, sender *PID) error {
	// the event stream itself lost a subscriber; publishing would loop.
	if sender != nil && sender.Equals(d.engine.eventStream) {
		log.Tracew("[DEADLETTER] event for stopped subscriber", log.M{
			"dest": dest.GetID(),
			"msg":  reflect.TypeOf(msg),
		})
		return ErrClosed
	}
	if _, ok := msg.(DeadLetterEvent); !ok {
		d.engine.BroadcastEvent(DeadLetterEvent{
			Target:  dest,
			Message: msg,
			Sender:  sender,
		})
	}
	return ErrClosed
}
