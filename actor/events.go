package actor

import (
	"time"

	"github.com/anthdm/relay/log"
)

// EventLogger is implemented by events that want to be logged when they
// pass through the event stream.
type EventLogger interface {
	Log() (log.Level, string, log.M)
}

// ActorInitializedEvent is broadcasted over the event stream before the
// Started message is delivered to the receiver.
type ActorInitializedEvent struct {
	PID       *PID
	Timestamp time.Time
}

func (e ActorInitializedEvent) Log() (log.Level, string, log.M) {
	return log.LevelTrace, "[ENGINE] actor initialized", log.M{"pid": e.PID.GetID()}
}

// ActorStartedEvent is broadcasted over the EventStream each time
// a Receiver (Actor) is spawned and activated. This means, that at
// the point of receiving this event the Receiver (Actor) is ready
// to process messages.
type ActorStartedEvent struct {
	PID       *PID
	Timestamp time.Time
}

func (e ActorStartedEvent) Log() (log.Level, string, log.M) {
	return log.LevelDebug, "[ENGINE] actor started", log.M{"pid": e.PID.GetID()}
}

// ActorStoppedEvent is broadcasted over the EventStream each time
// a process is terminated.
type ActorStoppedEvent struct {
	PID       *PID
	Timestamp time.Time
}

func (e ActorStoppedEvent) Log() (log.Level, string, log.M) {
	return log.LevelDebug, "[ENGINE] actor stopped", log.M{"pid": e.PID.GetID()}
}

// ActorRestartedEvent is broadcasted when an actor crashes and gets restarted
type ActorRestartedEvent struct {
	PID        *PID
	Timestamp  time.Time
	Stacktrace []byte
	Reason     any
	Restarts   int32
}

func (e ActorRestartedEvent) Log() (log.Level, string, log.M) {
	return log.LevelError, "[ENGINE] actor crashed and restarted", log.M{
		"pid":      e.PID.GetID(),
		"stack":    string(e.Stacktrace),
		"reason":   e.Reason,
		"restarts": e.Restarts,
	}
}

// ActorMaxRestartsExceededEvent gets created if an actor crashes too many times
type ActorMaxRestartsExceededEvent struct {
	PID        *PID
	Timestamp  time.Time
	Stacktrace []byte
	Reason     any
}

func (e ActorMaxRestartsExceededEvent) Log() (log.Level, string, log.M) {
	return log.LevelError, "[ENGINE] actor crashed too many times", log.M{
		"pid":    e.PID.GetID(),
		"stack":  string(e.Stacktrace),
		"reason": e.Reason,
	}
}

// ActorDuplicateIdEvent gets published if we try to register the same name twice.
type ActorDuplicateIdEvent struct {
	PID *PID
}

func (e ActorDuplicateIdEvent) Log() (log.Level, string, log.M) {
	return log.LevelError, "[ENGINE] actor name already claimed", log.M{"pid": e.PID.GetID()}
}

// DeadLetterEvent is published for every message sent to a PID that is not
// registered.
type DeadLetterEvent struct {
	Target  *PID
	Message any
	Sender  *PID
}

func (e DeadLetterEvent) Log() (log.Level, string, log.M) {
	return log.LevelTrace, "[DEADLETTER] message to unknown process", log.M{
		"dest":   e.Target.GetID(),
		"sender": e.Sender.GetID(),
	}
}
