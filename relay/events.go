package relay

import (
	"github.com/anthdm/relay/log"
)

// SocketAttachedEvent is broadcasted when a mailbox takes a new socket.
type SocketAttachedEvent struct {
	Identity   string
	Generation uint64
	SocketID   string
	Sockets    int
}

func (e SocketAttachedEvent) Log() (log.Level, string, log.M) {
	return log.LevelDebug, "[MAILBOX] socket attached", log.M{
		"identity":   e.Identity,
		"generation": e.Generation,
		"socket":     e.SocketID,
		"sockets":    e.Sockets,
	}
}

// SocketPrunedEvent is broadcasted when a mailbox finds a socket closed
// during fan-out and forgets it.
type SocketPrunedEvent struct {
	Identity   string
	Generation uint64
	SocketID   string
}

func (e SocketPrunedEvent) Log() (log.Level, string, log.M) {
	return log.LevelDebug, "[MAILBOX] pruned closed socket", log.M{
		"identity":   e.Identity,
		"generation": e.Generation,
		"socket":     e.SocketID,
	}
}

// PayloadDeliveredEvent is broadcasted after every fan-out. Sockets counts
// the sockets that accepted the payload.
type PayloadDeliveredEvent struct {
	Identity   string
	Generation uint64
	Size       int
	Sockets    int
}

func (e PayloadDeliveredEvent) Log() (log.Level, string, log.M) {
	return log.LevelTrace, "[MAILBOX] payload fanned out", log.M{
		"identity":   e.Identity,
		"generation": e.Generation,
		"size":       e.Size,
		"sockets":    e.Sockets,
	}
}

// MailboxRebirthEvent is broadcasted when an identity whose mailbox stopped
// connects again and gets a new generation.
type MailboxRebirthEvent struct {
	Identity   string
	Generation uint64
}

func (e MailboxRebirthEvent) Log() (log.Level, string, log.M) {
	return log.LevelDebug, "[SWITCHBOARD] mailbox reborn", log.M{
		"identity":   e.Identity,
		"generation": e.Generation,
	}
}

// MessageDroppedEvent is broadcasted when a payload reaches a mailbox that
// already stopped. There was no socket left to receive it.
type MessageDroppedEvent struct {
	Identity   string
	Generation uint64
	Size       int
}

func (e MessageDroppedEvent) Log() (log.Level, string, log.M) {
	return log.LevelInfo, "[SWITCHBOARD] dropped payload for stopped mailbox", log.M{
		"identity":   e.Identity,
		"generation": e.Generation,
		"size":       e.Size,
	}
}
