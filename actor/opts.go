package actor

import (
	"math/rand"
	"strconv"
	"time"
)

const (
	defaultInboxSize    = 1024
	defaultMaxRestarts  = 3
	defaultRestartDelay = 500 * time.Millisecond
)

type ReceiveFunc = func(*Context)

type MiddlewareFunc = func(ReceiveFunc) ReceiveFunc

type Opts struct {
	Producer     Producer
	Kind         string
	ID           string
	MaxRestarts  int32
	RestartDelay time.Duration
	InboxSize    int
	Middleware   []MiddlewareFunc
}

type OptFunc func(*Opts)

// DefaultOpts returns default options from the given Producer.
func DefaultOpts(p Producer) Opts {
	return Opts{
		Producer:     p,
		MaxRestarts:  defaultMaxRestarts,
		InboxSize:    defaultInboxSize,
		RestartDelay: defaultRestartDelay,
		ID:           strconv.Itoa(rand.Intn(1 << 31)),
	}
}

// WithInboxSize sets the capacity of the process inbox. Senders block
// while the inbox is full.
func WithInboxSize(size int) OptFunc {
	return func(opts *Opts) {
		opts.InboxSize = size
	}
}

// WithMaxRestarts sets how many panics the process survives. Zero means the
// first panic stops it.
func WithMaxRestarts(n int) OptFunc {
	return func(opts *Opts) {
		opts.MaxRestarts = int32(n)
	}
}

func WithRestartDelay(d time.Duration) OptFunc {
	return func(opts *Opts) {
		opts.RestartDelay = d
	}
}

func WithID(id string) OptFunc {
	return func(opts *Opts) {
		opts.ID = id
	}
}

func WithMiddleware(mw ...MiddlewareFunc) OptFunc {
	return func(opts *Opts) {
		opts.Middleware = append(opts.Middleware, mw...)
	}
}
