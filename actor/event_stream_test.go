package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type CustomEvent struct {
	msg string
}

func TestEventStreamLocal(t *testing.T) {
	e := newTestEngine(t)
	wg := sync.WaitGroup{}
	wg.Add(2)
	subscribed := sync.WaitGroup{}
	subscribed.Add(2)
	for _, kind := range []string{"actor_a", "actor_b"} {
		e.SpawnFunc(func(c *Context) {
			switch msg := c.Message().(type) {
			case Started:
				c.Engine().Subscribe(c.PID())
				subscribed.Done()
			case CustomEvent:
				assert.Equal(t, "foo", msg.msg)
				wg.Done()
			}
		}, kind)
	}
	subscribed.Wait()
	e.BroadcastEvent(CustomEvent{msg: "foo"})
	// make sure both actors have received the event.
	// If so, the test has passed.
	wg.Wait()
}

func TestEventStreamActorStartedEvent(t *testing.T) {
	e := newTestEngine(t)
	done := make(chan struct{})

	pidb := e.SpawnFunc(func(c *Context) {
		switch msg := c.Message().(type) {
		case ActorStartedEvent:
			if msg.PID.ID == "a/1" {
				close(done)
			}
		}
	}, "b")
	e.Subscribe(pidb)

	e.SpawnFunc(func(c *Context) {}, "a", WithID("1"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no started event")
	}
}

func TestEventStreamActorStoppedEvent(t *testing.T) {
	e := newTestEngine(t)
	done := make(chan struct{})

	a := e.SpawnFunc(func(c *Context) {}, "a", WithID("1"))
	pidb := e.SpawnFunc(func(c *Context) {
		switch msg := c.Message().(type) {
		case ActorStoppedEvent:
			if msg.PID.ID == "a/1" {
				close(done)
			}
		}
	}, "b")

	e.Subscribe(pidb)
	<-e.Poison(a).Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no stopped event")
	}
}

func TestEventStreamDropsStoppedSubscriber(t *testing.T) {
	e := newTestEngine(t)
	sub := e.SpawnFunc(func(c *Context) {}, "sub")
	e.Subscribe(sub)
	<-e.Poison(sub).Done()

	// must not loop through the dead letter.
	for i := 0; i < 10; i++ {
		e.BroadcastEvent(CustomEvent{msg: "nobody"})
	}

	done := make(chan struct{})
	watcher := e.SpawnFunc(func(c *Context) {
		if _, ok := c.Message().(CustomEvent); ok {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}, "watcher")
	e.Subscribe(watcher)
	e.BroadcastEvent(CustomEvent{msg: "still alive"})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event stream stopped forwarding")
	}
}

func TestEventStreamSkipsFullSubscriber(t *testing.T) {
	e := newTestEngine(t)
	release := make(chan struct{})
	defer close(release)

	slow := e.SpawnFunc(func(c *Context) {
		if _, ok := c.Message().(CustomEvent); ok {
			<-release
		}
	}, "slow", WithInboxSize(1))
	e.Subscribe(slow)

	done := make(chan struct{})
	fast := e.SpawnFunc(func(c *Context) {
		if msg, ok := c.Message().(CustomEvent); ok && msg.msg == "last" {
			close(done)
		}
	}, "fast")
	e.Subscribe(fast)

	for i := 0; i < 100; i++ {
		e.BroadcastEvent(CustomEvent{msg: "flood"})
	}
	e.BroadcastEvent(CustomEvent{msg: "last"})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a stalled subscriber held up the event stream")
	}
}
