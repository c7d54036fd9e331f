package actor

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/DataDog/gostackparse"
	"github.com/anthdm/relay/log"
)

type Envelope struct {
	Msg    any
	Sender *PID
}

// Processer is an interface the abstracts the way a process behaves.
type Processer interface {
	Start()
	PID() *PID
	Send(*PID, any, *PID) error
	Invoke([]Envelope)
	Shutdown()
	Done() <-chan struct{}
}

type process struct {
	Opts

	inbox    Inboxer
	context  *Context
	pid      *PID
	restarts int32
	mbuffer  []Envelope
	stopped  bool
	done     chan struct{}
}

func newProcess(e *Engine, opts Opts) *process {
	pid := NewPID(e.address, opts.Kind+pidSeparator+opts.ID)
	ctx := newContext(e, pid)
	p := &process{
		pid:     pid,
		inbox:   NewInbox(opts.InboxSize),
		Opts:    opts,
		context: ctx,
		done:    make(chan struct{}),
	}
	return p
}

func applyMiddleware(rcv ReceiveFunc, middleware ...MiddlewareFunc) ReceiveFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		rcv = middleware[i](rcv)
	}
	return rcv
}

func (p *process) Invoke(msgs []Envelope) {
	var (
		// numbers of msgs that need to be processed.
		nmsg = len(msgs)
		// numbers of msgs that are processed.
		nproc = 0
	)
	defer func() {
		// If we recovered, we buffer up all the messages that we could not process
		// so we can retry them on the next restart. The message that panicked
		// is dropped.
		if v := recover(); v != nil {
			p.mbuffer = make([]Envelope, nmsg-nproc)
			copy(p.mbuffer, msgs[nproc:])
			p.tryRestart(v)
		}
	}()

	for i := 0; i < nmsg && !p.stopped; i++ {
		nproc++
		msg := msgs[i]
		if _, ok := msg.Msg.(poisonPill); ok {
			p.cleanup()
			return
		}
		p.invokeMsg(msg)
		if p.context.stopping {
			p.cleanup()
			return
		}
	}
}

func (p *process) invokeMsg(msg Envelope) {
	p.context.message = msg.Msg
	p.context.sender = msg.Sender
	recv := p.context.receiver
	if len(p.Opts.Middleware) > 0 {
		applyMiddleware(recv.Receive, p.Opts.Middleware...)(p.context)
	} else {
		recv.Receive(p.context)
	}
}

func (p *process) Start() {
	recv := p.Producer()
	p.context.receiver = recv
	defer func() {
		if v := recover(); v != nil {
			p.tryRestart(v)
		}
	}()
	p.context.message = Initialized{}
	applyMiddleware(recv.Receive, p.Opts.Middleware...)(p.context)
	p.context.engine.BroadcastEvent(ActorInitializedEvent{PID: p.pid, Timestamp: time.Now()})

	p.context.message = Started{}
	applyMiddleware(recv.Receive, p.Opts.Middleware...)(p.context)
	p.context.engine.BroadcastEvent(ActorStartedEvent{PID: p.pid, Timestamp: time.Now()})
	if p.context.stopping {
		p.cleanup()
		return
	}
	// If we have messages in our buffer, invoke them.
	if len(p.mbuffer) > 0 {
		buffered := p.mbuffer
		p.mbuffer = nil
		p.Invoke(buffered)
		if p.stopped {
			return
		}
	}

	p.inbox.Start(p)
}

func (p *process) tryRestart(v any) {
	stackTrace := cleanTrace(debug.Stack())
	// If we reach the max restarts, we shutdown the inbox and clean
	// everything up.
	if p.restarts >= p.MaxRestarts {
		p.context.engine.BroadcastEvent(ActorMaxRestartsExceededEvent{
			PID:        p.pid,
			Timestamp:  time.Now(),
			Stacktrace: stackTrace,
			Reason:     v,
		})
		p.mbuffer = nil
		p.cleanup()
		return
	}

	p.context.message = Stopped{}
	p.context.receiver.Receive(p.context)

	p.restarts++
	// Restart the process after its restartDelay
	p.context.engine.BroadcastEvent(ActorRestartedEvent{
		PID:        p.pid,
		Timestamp:  time.Now(),
		Stacktrace: stackTrace,
		Reason:     v,
		Restarts:   p.restarts,
	})
	time.Sleep(p.Opts.RestartDelay)
	p.context.stopping = false
	p.Start()
}

// cleanup closes the inbox first, so every later send observes ErrClosed,
// then deregisters the process and delivers Stopped.
func (p *process) cleanup() {
	if p.stopped {
		return
	}
	p.stopped = true

	p.inbox.Stop()
	p.context.engine.Registry.Remove(p)
	p.context.message = Stopped{}
	applyMiddleware(p.context.receiver.Receive, p.Opts.Middleware...)(p.context)

	p.context.engine.BroadcastEvent(ActorStoppedEvent{PID: p.pid, Timestamp: time.Now()})
	close(p.done)
}

func (p *process) PID() *PID { return p.pid }
func (p *process) Send(_ *PID, msg any, sender *PID) error {
	return p.inbox.Send(Envelope{Msg: msg, Sender: sender})
}

func (p *process) TrySend(_ *PID, msg any, sender *PID) error {
	return p.inbox.TrySend(Envelope{Msg: msg, Sender: sender})
}

func (p *process) Shutdown() {
	p.cleanup()
}

// Done is closed once the process has fully stopped.
func (p *process) Done() <-chan struct{} { return p.done }

func cleanTrace(stack []byte) []byte {
	goros, err := gostackparse.Parse(bytes.NewReader(stack))
	if err != nil {
		log.Errorw("[PROCESS] failed to parse stacktrace", log.M{"err": err})
		return stack
	}
	if len(goros) != 1 {
		log.Errorw("[PROCESS] expected only one goroutine", log.M{"goroutines": len(goros)})
		return stack
	}
	// skip the runtime and recovery frames:
	if len(goros[0].Stack) > 4 {
		goros[0].Stack = goros[0].Stack[4:]
	}
	buf := bytes.NewBuffer(nil)
	_, _ = fmt.Fprintf(buf, "goroutine %d [%s]\n", goros[0].ID, goros[0].State)
	for _, frame := range goros[0].Stack {
		_, _ = fmt.Fprintf(buf, "%s\n", frame.Func)
		_, _ = fmt.Fprint(buf, "\t", frame.File, ":", frame.Line, "\n")
	}
	return buf.Bytes()
}
