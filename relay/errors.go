package relay

import (
	"errors"

	"github.com/anthdm/relay/actor"
)

var (
	// ErrNotFound is returned by Deliver when no mailbox is registered for
	// the identity.
	ErrNotFound = errors.New("relay: no mailbox registered for identity")

	// ErrClosed is returned when the worker behind a handle has stopped.
	// It is a routine condition: sockets and mailboxes terminate themselves.
	ErrClosed = actor.ErrClosed
)
