package actor

import (
	"sync"
	"sync/atomic"
)

const defaultThroughput = 300

const (
	idle int32 = iota
	running
	stopped
)

// Inboxer is an interface that defines methods for sending, starting, and stopping.
type Inboxer interface {
	Send(Envelope) error
	TrySend(Envelope) error
	Start(Processer)
	Stop()
	Done() <-chan struct{}
}

// Inbox is a bounded FIFO queue drained by a single goroutine. Send blocks
// while the queue is full and fails with ErrClosed once Stop was called.
type Inbox struct {
	ch         chan Envelope
	done       chan struct{}
	stopOnce   sync.Once
	proc       Processer
	throughput int
	procStatus atomic.Int32
}

// NewInbox returns an inbox that buffers at most size envelopes.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{
		ch:         make(chan Envelope, size),
		done:       make(chan struct{}),
		throughput: defaultThroughput,
	}
}

// Send enqueues msg, waiting for space if the inbox is full.
func (in *Inbox) Send(msg Envelope) error {
	select {
	case <-in.done:
		return ErrClosed
	default:
	}
	select {
	case in.ch <- msg:
		return in.queued()
	case <-in.done:
		return ErrClosed
	}
}

// TrySend enqueues msg only if there is room, and fails with ErrFull
// otherwise.
func (in *Inbox) TrySend(msg Envelope) error {
	select {
	case <-in.done:
		return ErrClosed
	default:
	}
	select {
	case in.ch <- msg:
		return in.queued()
	default:
		return ErrFull
	}
}

// queued reports whether an envelope that just went into the channel can
// still be drained. Stop may have closed the inbox in between.
func (in *Inbox) queued() error {
	select {
	case <-in.done:
		return ErrClosed
	default:
		return nil
	}
}

// Start hands the inbox to its processer and starts draining it. Calling
// Start again, as a restart does, keeps the running drain goroutine.
func (in *Inbox) Start(proc Processer) {
	in.proc = proc
	if in.procStatus.CompareAndSwap(idle, running) {
		go in.run()
	}
}

// run invokes the processer with batches of up to throughput envelopes,
// blocking while the inbox is empty.
func (in *Inbox) run() {
	batch := make([]Envelope, 0, in.throughput)
	for {
		select {
		case msg := <-in.ch:
			batch = append(batch[:0], msg)
		case <-in.done:
			return
		}
	fill:
		for len(batch) < in.throughput {
			select {
			case msg := <-in.ch:
				batch = append(batch, msg)
			default:
				break fill
			}
		}
		in.proc.Invoke(batch)
		if in.procStatus.Load() == stopped {
			return
		}
	}
}

// Stop closes the inbox. Envelopes still queued are dropped.
func (in *Inbox) Stop() {
	in.stopOnce.Do(func() {
		in.procStatus.Store(stopped)
		close(in.done)
	})
}

// Done is closed once the inbox is stopped.
func (in *Inbox) Done() <-chan struct{} {
	return in.done
}
