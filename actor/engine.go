package actor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Producer is any function that can return a Receiver
type Producer func() Receiver

// Receiver is an interface that can receive and process messages.
type Receiver interface {
	Receive(*Context)
}

// EngineConfig holds configuration for the actor Engine.
type EngineConfig struct {
	address string
}

// NewEngineConfig returns a new default EngineConfig.
func NewEngineConfig() EngineConfig {
	return EngineConfig{
		address: LocalLookupAddr,
	}
}

// WithAddress sets the address processes of this engine are reachable under.
func (config EngineConfig) WithAddress(address string) EngineConfig {
	config.address = address
	return config
}

// Engine represents the actor engine.
type Engine struct {
	Registry *Registry

	address     string
	deadLetter  Processer
	eventStream *PID
}

// NewEngine returns a new actor Engine.
func NewEngine(config EngineConfig) (*Engine, error) {
	var errs []error
	if config.address == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if strings.Contains(config.address, pidSeparator) {
		errs = append(errs, fmt.Errorf("address %q must not contain %q", config.address, pidSeparator))
	}
	if len(errs) > 0 {
		return nil, ErrInitFailed{Errors: errs}
	}

	e := &Engine{
		address: config.address,
	}
	e.Registry = newRegistry(e)
	e.deadLetter = newDeadLetter(e)
	e.Registry.add(e.deadLetter)

	opts := DefaultOpts(newEventStream())
	opts.Kind = "eventstream"
	opts.ID = "0"
	opts.InboxSize = eventStreamInboxSize
	proc := newProcess(e, opts)
	e.eventStream = proc.PID()
	e.SpawnProc(proc)
	return e, nil
}

// Spawn spawns a process that will producer by the given Producer and
// can be configured with the given opts.
func (e *Engine) Spawn(p Producer, kind string, opts ...OptFunc) *PID {
	options := DefaultOpts(p)
	options.Kind = kind
	for _, opt := range opts {
		opt(&options)
	}
	proc := newProcess(e, options)
	return e.SpawnProc(proc)
}

func (e *Engine) SpawnFunc(f func(*Context), kind string, opts ...OptFunc) *PID {
	return e.Spawn(newFuncReceiver(f), kind, opts...)
}

// SpawnProc spawns the give Processer. This function is usefull when working
// with custom created Processes. When the PID is already taken the running
// process keeps it and its PID is returned.
func (e *Engine) SpawnProc(p Processer) *PID {
	if !e.Registry.add(p) {
		return p.PID()
	}
	p.Start()
	return p.PID()
}

// Address returns the address of the actor engine.
func (e *Engine) Address() string {
	return e.address
}

// Request sends the given message to the given PID as a "Request", returning
// a response that will resolve in the future. Calling Response.Result() will
// block until the deadline is exceeded, the target stopped, or the response
// is being resolved. An error is returned when the message could not be
// enqueued.
func (e *Engine) Request(pid *PID, msg any, timeout time.Duration) (*Response, error) {
	target := e.Registry.get(pid)
	resp := NewResponse(e, timeout, target.Done())
	e.Registry.add(resp)

	if err := e.SendWithSender(pid, msg, resp.PID()); err != nil {
		resp.Shutdown()
		return nil, err
	}
	return resp, nil
}

// SendWithSender will send the given message to the given PID with the
// given sender. Receivers receiving this message can check the sender
// by calling Context.Sender().
func (e *Engine) SendWithSender(pid *PID, msg any, sender *PID) error {
	return e.SendLocal(pid, msg, sender)
}

// Send sends the given message to the given PID. It blocks while the inbox
// of the process is full and returns ErrClosed when the process is not
// registered or has stopped.
func (e *Engine) Send(pid *PID, msg any) error {
	return e.SendLocal(pid, msg, nil)
}

func (e *Engine) SendLocal(pid *PID, msg any, sender *PID) error {
	proc := e.Registry.get(pid)
	return proc.Send(pid, msg, sender)
}

// TrySend is Send without the wait. It returns ErrFull when the inbox of
// the process has no room for msg.
func (e *Engine) TrySend(pid *PID, msg any, sender *PID) error {
	proc := e.Registry.get(pid)
	if ts, ok := proc.(trySender); ok {
		return ts.TrySend(pid, msg, sender)
	}
	// dead letters and responses never block.
	return proc.Send(pid, msg, sender)
}

type trySender interface {
	TrySend(*PID, any, *PID) error
}

// BroadcastEvent publishes msg on the event stream.
func (e *Engine) BroadcastEvent(msg any) {
	if e.eventStream == nil {
		return
	}
	_ = e.SendLocal(e.eventStream, msg, nil)
}

// Subscribe registers pid to receive every event broadcast on the engine.
func (e *Engine) Subscribe(pid *PID) {
	_ = e.Send(e.eventStream, eventSub{pid: pid})
}

func (e *Engine) Unsubscribe(pid *PID) {
	_ = e.Send(e.eventStream, eventUnsub{pid: pid})
}

type SendRepeater struct {
	engine   *Engine
	self     *PID
	target   *PID
	msg      any
	interval time.Duration
	cancelch chan struct{}
}

func (sr SendRepeater) start() {
	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// the target is gone, nothing left to repeat to.
				if err := sr.engine.SendWithSender(sr.target, sr.msg, sr.self); err != nil {
					return
				}
			case <-sr.cancelch:
				return
			}
		}
	}()
}

// Stop stops the repeater. It is safe to call more than once.
func (sr SendRepeater) Stop() {
	select {
	case sr.cancelch <- struct{}{}:
	default:
	}
}

// SendRepeat will send the given message to the given PID each given interval.
// It will return a SendRepeater struct that can stop the repeating message by
// calling Stop(). The repeater also stops once the target is closed.
func (e *Engine) SendRepeat(pid *PID, msg any, interval time.Duration) SendRepeater {
	clonedPID := *pid
	sr := SendRepeater{
		engine:   e,
		self:     nil,
		target:   &clonedPID,
		interval: interval,
		msg:      msg,
		cancelch: make(chan struct{}, 1),
	}
	sr.start()
	return sr
}

// Poison will send a poisonPill to the process that is associated with the given PID.
// The process will shut down once it processed all its messages before the poisonPill
// was received. The returned context is done once the process is stopped.
// Poison must not be called by the process on itself, use Context.Stop.
func (e *Engine) Poison(pid *PID) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	proc := e.Registry.get(pid)
	if err := proc.Send(pid, poisonPill{}, nil); err != nil {
		cancel()
		return ctx
	}
	go func() {
		<-proc.Done()
		cancel()
	}()
	return ctx
}

type funcReceiver struct {
	f func(*Context)
}

func newFuncReceiver(f func(*Context)) Producer {
	return func() Receiver {
		return &funcReceiver{
			f: f,
		}
	}
}

func (r *funcReceiver) Receive(c *Context) {
	r.f(c)
}
