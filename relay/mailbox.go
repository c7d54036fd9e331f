package relay

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/anthdm/relay/actor"
	"github.com/anthdm/relay/log"
	"golang.org/x/sync/errgroup"
)

type attachSocket struct {
	socket SocketHandle
}

type attached struct{}

type deliverPayload struct {
	payload []byte
}

// mailboxStopped tells the owner of a mailbox that a generation is gone.
type mailboxStopped struct {
	identity   string
	generation uint64
}

// MailboxHandle addresses one generation of the mailbox of an identity.
type MailboxHandle struct {
	Identity   string
	Generation uint64

	pid    *actor.PID
	owner  *actor.PID
	engine *actor.Engine
	cfg    Config
}

func spawnMailbox(e *actor.Engine, owner *actor.PID, identity string, generation uint64, cfg Config) MailboxHandle {
	id := identity + "/" + strconv.FormatUint(generation, 10)
	pid := e.Spawn(newMailbox(owner, identity, generation, cfg), "mailbox", cfg.spawnOpts(id)...)
	return MailboxHandle{
		Identity:   identity,
		Generation: generation,
		pid:        pid,
		owner:      owner,
		engine:     e,
		cfg:        cfg,
	}
}

func (h MailboxHandle) PID() *actor.PID { return h.pid }

// Attach adds socket to the fan-out set. It waits until the mailbox has
// taken the socket, so an attach that lands behind the delivery that stopped
// the mailbox reports ErrClosed instead of being lost.
func (h MailboxHandle) Attach(socket SocketHandle) error {
	resp, err := h.engine.Request(h.pid, attachSocket{socket: socket}, h.cfg.RequestTimeout)
	if err != nil {
		return err
	}
	res, err := resp.Result()
	if err != nil {
		if errors.Is(err, actor.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("attach to mailbox %s: %w", h.pid, err)
	}
	if _, ok := res.(attached); !ok {
		return fmt.Errorf("attach to mailbox %s: unexpected reply %T", h.pid, res)
	}
	return nil
}

// Deliver queues payload for fan-out. It blocks while the mailbox queue is
// full and fails with ErrClosed once the mailbox has stopped.
func (h MailboxHandle) Deliver(payload []byte) error {
	return h.engine.Send(h.pid, deliverPayload{payload: payload})
}

// Successor spawns the next generation of the mailbox, with no sockets.
func (h MailboxHandle) Successor() MailboxHandle {
	return spawnMailbox(h.engine, h.owner, h.Identity, h.Generation+1, h.cfg)
}

// mailbox fans every payload out to the sockets attached to it. It stops
// itself when a delivery leaves it without sockets, and tells its owner.
type mailbox struct {
	owner       *actor.PID
	identity    string
	generation  uint64
	fanoutLimit int
	sockets     map[string]SocketHandle
}

func newMailbox(owner *actor.PID, identity string, generation uint64, cfg Config) actor.Producer {
	return func() actor.Receiver {
		return &mailbox{
			owner:       owner,
			identity:    identity,
			generation:  generation,
			fanoutLimit: cfg.FanoutLimit,
			sockets:     make(map[string]SocketHandle),
		}
	}
}

func (m *mailbox) Receive(c *actor.Context) {
	switch msg := c.Message().(type) {
	case attachSocket:
		m.sockets[msg.socket.ID] = msg.socket
		c.Respond(attached{})
		c.Engine().BroadcastEvent(SocketAttachedEvent{
			Identity:   m.identity,
			Generation: m.generation,
			SocketID:   msg.socket.ID,
			Sockets:    len(m.sockets),
		})
	case deliverPayload:
		m.fanout(c, msg.payload)
	case actor.Stopped:
		// the owner may itself be waiting on this mailbox, so never block
		// the stop on its inbox.
		e, owner := c.Engine(), m.owner
		stopped := mailboxStopped{identity: m.identity, generation: m.generation}
		go func() { _ = e.Send(owner, stopped) }()
	}
}

func (m *mailbox) fanout(c *actor.Context, payload []byte) {
	sockets := make([]SocketHandle, 0, len(m.sockets))
	for _, s := range m.sockets {
		sockets = append(sockets, s)
	}

	var g errgroup.Group
	if m.fanoutLimit > 0 {
		g.SetLimit(m.fanoutLimit)
	}
	closed := make([]bool, len(sockets))
	for i, s := range sockets {
		g.Go(func() error {
			closed[i] = errors.Is(s.Send(payload), ErrClosed)
			return nil
		})
	}
	_ = g.Wait()

	pruned := 0
	for i, s := range sockets {
		if !closed[i] {
			continue
		}
		delete(m.sockets, s.ID)
		pruned++
		c.Engine().BroadcastEvent(SocketPrunedEvent{
			Identity:   m.identity,
			Generation: m.generation,
			SocketID:   s.ID,
		})
	}
	c.Engine().BroadcastEvent(PayloadDeliveredEvent{
		Identity:   m.identity,
		Generation: m.generation,
		Size:       len(payload),
		Sockets:    len(sockets) - pruned,
	})

	if len(m.sockets) == 0 {
		log.Debugw("[MAILBOX] no sockets left", log.M{
			"identity":   m.identity,
			"generation": m.generation,
		})
		c.Stop()
	}
}
