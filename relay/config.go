package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/anthdm/relay/actor"
)

const (
	defaultInboxSize      = 8
	defaultRequestTimeout = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultWriteWait      = 2 * time.Second
)

// Config tunes the switchboard and the workers it spawns.
type Config struct {
	// InboxSize is the queue depth of every worker. Senders block while a
	// worker's queue is full.
	InboxSize int
	// FanoutLimit caps the concurrent sends of a single delivery. Zero
	// means one goroutine per attached socket.
	FanoutLimit int
	// RequestTimeout bounds how long callers wait for the switchboard or a
	// mailbox to answer.
	RequestTimeout time.Duration
	// PingInterval is the keep-alive period of a socket. Zero disables pings.
	PingInterval time.Duration
	// PongWait is how long a socket may stay silent before it is considered
	// dead. Zero disables the read deadline.
	PongWait time.Duration
	// WriteWait bounds a single frame write. Zero disables the deadline.
	// It must stay below RequestTimeout: a connect queued behind a fan-out
	// to a stalled socket waits for that write.
	WriteWait time.Duration
	// Middleware wraps the receivers of every worker.
	Middleware []actor.MiddlewareFunc
}

func DefaultConfig() Config {
	return Config{
		InboxSize:      defaultInboxSize,
		RequestTimeout: defaultRequestTimeout,
		PingInterval:   defaultPingInterval,
		PongWait:       defaultPongWait,
		WriteWait:      defaultWriteWait,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.InboxSize < 1 {
		errs = append(errs, fmt.Errorf("inbox size must be positive, got %d", c.InboxSize))
	}
	if c.FanoutLimit < 0 {
		errs = append(errs, fmt.Errorf("fanout limit must not be negative, got %d", c.FanoutLimit))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.PingInterval < 0 || c.PongWait < 0 || c.WriteWait < 0 {
		errs = append(errs, errors.New("socket timings must not be negative"))
	}
	if c.WriteWait > 0 && c.RequestTimeout > 0 && c.WriteWait >= c.RequestTimeout {
		errs = append(errs, fmt.Errorf("write wait %s must be shorter than request timeout %s", c.WriteWait, c.RequestTimeout))
	}
	if c.PingInterval > 0 && c.PongWait > 0 && c.PingInterval >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping interval %s must be shorter than pong wait %s", c.PingInterval, c.PongWait))
	}
	return errors.Join(errs...)
}

func (c Config) spawnOpts(id string) []actor.OptFunc {
	return []actor.OptFunc{
		actor.WithID(id),
		actor.WithInboxSize(c.InboxSize),
		actor.WithMaxRestarts(0),
		actor.WithMiddleware(c.Middleware...),
	}
}
