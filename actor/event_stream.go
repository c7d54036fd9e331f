package actor

import (
	"errors"
	"fmt"

	"github.com/anthdm/relay/log"
)

const eventStreamInboxSize = 1024

type eventSub struct {
	pid *PID
}

type eventUnsub struct {
	pid *PID
}

// eventStream is the process every engine event is broadcast to. It logs
// events implementing EventLogger and forwards all of them to the
// subscribed processes. A subscriber with a full inbox misses the event,
// a slow subscriber never holds up the broadcasters.
type eventStream struct {
	subs map[uint64]*PID
}

func newEventStream() Producer {
	return func() Receiver {
		return &eventStream{
			subs: make(map[uint64]*PID),
		}
	}
}

func (e *eventStream) Receive(c *Context) {
	switch msg := c.Message().(type) {
	case Initialized, Started, Stopped:
	case eventSub:
		e.subs[msg.pid.LookupKey()] = msg.pid
	case eventUnsub:
		delete(e.subs, msg.pid.LookupKey())
	default:
		if ev, ok := msg.(EventLogger); ok {
			level, text, fields := ev.Log()
			log.Logw(level, text, fields)
		}
		for key, sub := range e.subs {
			err := c.Engine().TrySend(sub, msg, c.PID())
			switch {
			case errors.Is(err, ErrFull):
				log.Tracew("[EVENTSTREAM] subscriber full, event dropped", log.M{
					"subscriber": sub.String(),
					"event":      fmt.Sprintf("%T", msg),
				})
			case err != nil:
				delete(e.subs, key)
			}
		}
	}
}
