package relay

import (
	"time"

	"github.com/anthdm/relay/actor"
	"github.com/anthdm/relay/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the bidirectional transport a socket worker owns.
// *websocket.Conn implements it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type outboundFrame struct {
	payload []byte
}

type keepAlive struct{}

type peerClosed struct {
	err error
}

// SocketHandle addresses one socket worker. It is cheap to copy.
type SocketHandle struct {
	ID     string
	pid    *actor.PID
	engine *actor.Engine
}

// Send queues payload as one binary frame. It fails with ErrClosed once the
// worker has stopped.
func (h SocketHandle) Send(payload []byte) error {
	return h.engine.Send(h.pid, outboundFrame{payload: payload})
}

// Close stops the worker after the frames already queued.
func (h SocketHandle) Close() {
	h.engine.Poison(h.pid)
}

func (h SocketHandle) PID() *actor.PID { return h.pid }

func spawnSocket(e *actor.Engine, conn Conn, cfg Config) SocketHandle {
	id := uuid.NewString()
	pid := e.Spawn(newSocket(id, conn, cfg), "socket", cfg.spawnOpts(id)...)
	return SocketHandle{ID: id, pid: pid, engine: e}
}

// socket owns one connection. Writes happen on the worker goroutine, reads
// on a dedicated goroutine that reports closure back to the worker.
type socket struct {
	id       string
	conn     Conn
	cfg      Config
	repeater *actor.SendRepeater
}

func newSocket(id string, conn Conn, cfg Config) actor.Producer {
	return func() actor.Receiver {
		return &socket{
			id:   id,
			conn: conn,
			cfg:  cfg,
		}
	}
}

func (s *socket) Receive(c *actor.Context) {
	switch msg := c.Message().(type) {
	case actor.Started:
		s.start(c)
	case outboundFrame:
		if err := s.write(msg.payload); err != nil {
			log.Debugw("[SOCKET] write failed", log.M{"id": s.id, "err": err})
			c.Stop()
		}
	case keepAlive:
		if err := s.conn.WriteControl(websocket.PingMessage, nil, s.deadline(s.cfg.WriteWait)); err != nil {
			log.Debugw("[SOCKET] ping failed", log.M{"id": s.id, "err": err})
			c.Stop()
		}
	case peerClosed:
		if websocket.IsCloseError(msg.err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			log.Debugw("[SOCKET] closed by peer", log.M{"id": s.id})
		} else {
			log.Debugw("[SOCKET] transport error", log.M{"id": s.id, "err": msg.err})
		}
		c.Stop()
	case actor.Stopped:
		if s.repeater != nil {
			s.repeater.Stop()
		}
		_ = s.conn.Close()
	}
}

func (s *socket) start(c *actor.Context) {
	if s.cfg.PongWait > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		})
	}
	go s.readLoop(c.Engine(), c.PID())
	if s.cfg.PingInterval > 0 {
		repeater := c.Engine().SendRepeat(c.PID(), keepAlive{}, s.cfg.PingInterval)
		s.repeater = &repeater
	}
}

func (s *socket) write(payload []byte) error {
	if s.cfg.WriteWait > 0 {
		if err := s.conn.SetWriteDeadline(s.deadline(s.cfg.WriteWait)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (s *socket) deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// readLoop drains inbound frames. The relay only pushes, so application
// frames are ignored. It returns on the first read error, which includes
// close frames and the connection being closed by the worker.
func (s *socket) readLoop(e *actor.Engine, pid *actor.PID) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			_ = e.Send(pid, peerClosed{err: err})
			return
		}
		log.Debugw("[SOCKET] ignoring inbound frame", log.M{
			"id":   s.id,
			"type": messageType,
			"size": len(data),
		})
	}
}
