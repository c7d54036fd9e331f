package relay

import (
	"errors"
	"fmt"

	"github.com/anthdm/relay/actor"
	"github.com/anthdm/relay/log"
)

type deliverRequest struct {
	identity string
	payload  []byte
}

type deliverResult struct {
	err error
}

type connectRequest struct {
	identity string
	conn     Conn
}

type connectResult struct {
	socketID string
	err      error
}

// Switchboard routes payloads by identity to the mailbox of that identity,
// and attaches new connections to it. All routing state is owned by a single
// switchboard worker; Switchboard is the handle callers use to reach it.
type Switchboard struct {
	engine *actor.Engine
	pid    *actor.PID
	cfg    Config
}

// New spawns the switchboard worker on e.
func New(e *actor.Engine, cfg Config) (*Switchboard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("relay: invalid config: %w", err)
	}
	sb := newSwitchboard(cfg)
	pid := e.Spawn(func() actor.Receiver { return sb }, "switchboard",
		actor.WithID("0"),
		actor.WithInboxSize(cfg.InboxSize),
		actor.WithMiddleware(cfg.Middleware...),
	)
	return &Switchboard{
		engine: e,
		pid:    pid,
		cfg:    cfg,
	}, nil
}

func (s *Switchboard) PID() *actor.PID { return s.pid }

// Deliver hands payload to the mailbox of identity. It returns ErrNotFound
// when no socket is connected as identity. A payload that reaches a mailbox
// which stopped in the meantime is dropped and Deliver returns nil.
func (s *Switchboard) Deliver(identity string, payload []byte) error {
	res, err := s.request(deliverRequest{identity: identity, payload: payload})
	if err != nil {
		return err
	}
	switch r := res.(type) {
	case deliverResult:
		return r.err
	default:
		return fmt.Errorf("relay: unexpected deliver reply %T", res)
	}
}

// Connect spawns a socket worker owning conn and attaches it to the mailbox
// of identity, creating the mailbox when needed. The socket worker closes
// conn when it stops.
func (s *Switchboard) Connect(identity string, conn Conn) error {
	res, err := s.request(connectRequest{identity: identity, conn: conn})
	if err != nil {
		_ = conn.Close()
		return err
	}
	switch r := res.(type) {
	case connectResult:
		return r.err
	default:
		return fmt.Errorf("relay: unexpected connect reply %T", res)
	}
}

func (s *Switchboard) request(msg any) (any, error) {
	resp, err := s.engine.Request(s.pid, msg, s.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Result()
}

// switchboard maps every identity to the current generation of its mailbox.
// An entry is removed once its mailbox stops. generations outlives the
// entries, so a mailbox spawned for a returning identity never reuses the
// PID of a stopped one.
type switchboard struct {
	cfg         Config
	mailboxes   map[string]MailboxHandle
	generations map[string]uint64
}

func newSwitchboard(cfg Config) *switchboard {
	return &switchboard{
		cfg:         cfg,
		mailboxes:   make(map[string]MailboxHandle),
		generations: make(map[string]uint64),
	}
}

func (s *switchboard) Receive(c *actor.Context) {
	switch msg := c.Message().(type) {
	case actor.Started:
		log.Debugw("[SWITCHBOARD] started", log.M{"mailboxes": len(s.mailboxes)})
	case deliverRequest:
		c.Respond(deliverResult{err: s.deliver(c, msg)})
	case connectRequest:
		c.Respond(s.connect(c, msg))
	case mailboxStopped:
		s.forget(msg.identity, msg.generation)
	}
}

func (s *switchboard) deliver(c *actor.Context, msg deliverRequest) error {
	mb, ok := s.mailboxes[msg.identity]
	if !ok {
		return ErrNotFound
	}
	if err := mb.Deliver(msg.payload); err != nil {
		c.Engine().BroadcastEvent(MessageDroppedEvent{
			Identity:   mb.Identity,
			Generation: mb.Generation,
			Size:       len(msg.payload),
		})
		s.forget(mb.Identity, mb.Generation)
	}
	return nil
}

func (s *switchboard) connect(c *actor.Context, msg connectRequest) connectResult {
	socket := spawnSocket(c.Engine(), msg.conn, s.cfg)

	mb, ok := s.mailboxes[msg.identity]
	if !ok {
		mb = s.spawnMailbox(c, msg.identity)
	}

	err := mb.Attach(socket)
	if errors.Is(err, ErrClosed) {
		mb = s.register(c, mb.Successor())
		err = mb.Attach(socket)
	}
	if err != nil {
		log.Errorw("[SWITCHBOARD] could not attach socket", log.M{
			"identity":   mb.Identity,
			"generation": mb.Generation,
			"socket":     socket.ID,
			"err":        err,
		})
		socket.Close()
		return connectResult{err: err}
	}
	return connectResult{socketID: socket.ID}
}

// spawnMailbox starts the next generation of the mailbox of identity.
func (s *switchboard) spawnMailbox(c *actor.Context, identity string) MailboxHandle {
	generation := s.generations[identity] + 1
	return s.register(c, spawnMailbox(c.Engine(), c.PID(), identity, generation, s.cfg))
}

// register makes mb the current generation of its identity.
func (s *switchboard) register(c *actor.Context, mb MailboxHandle) MailboxHandle {
	s.mailboxes[mb.Identity] = mb
	s.generations[mb.Identity] = mb.Generation
	if mb.Generation > 1 {
		c.Engine().BroadcastEvent(MailboxRebirthEvent{
			Identity:   mb.Identity,
			Generation: mb.Generation,
		})
	}
	return mb
}

// forget removes the entry of identity if it still points at generation.
func (s *switchboard) forget(identity string, generation uint64) {
	if mb, ok := s.mailboxes[identity]; ok && mb.Generation == generation {
		delete(s.mailboxes, identity)
	}
}
