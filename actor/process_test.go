package actor

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerPanic struct {
	data int
}

// Test_CleanTrace tests that the stack trace is cleaned up correctly and that the function
// which triggers the panic is at the top of the stack trace.
func Test_CleanTrace(t *testing.T) {
	e := newTestEngine(t)
	ch := make(chan ActorRestartedEvent, 1)
	watcher := e.SpawnFunc(func(c *Context) {
		if msg, ok := c.Message().(ActorRestartedEvent); ok {
			select {
			case ch <- msg:
			default:
			}
		}
	}, "watcher")
	e.Subscribe(watcher)

	pid := e.SpawnFunc(func(c *Context) {
		if m, ok := c.Message().(triggerPanic); ok && m.data != 10 {
			panicWrapper()
		}
	}, "foo", WithMaxRestarts(1), WithRestartDelay(time.Millisecond))
	require.NoError(t, e.Send(pid, triggerPanic{1}))

	select {
	case ev := <-ch:
		// split the panic into lines:
		lines := bytes.Split(ev.Stacktrace, []byte("\n"))
		require.Greater(t, len(lines), 1)
		// check that the second line is the panicWrapper function
		assert.True(t, bytes.Contains(lines[1], []byte("panicWrapper")))
		assert.Equal(t, int32(1), ev.Restarts)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for restart event")
	}
}

func TestMaxRestartsExceeded(t *testing.T) {
	e := newTestEngine(t)
	ch := make(chan ActorMaxRestartsExceededEvent, 1)
	watcher := e.SpawnFunc(func(c *Context) {
		if msg, ok := c.Message().(ActorMaxRestartsExceededEvent); ok {
			ch <- msg
		}
	}, "watcher")
	e.Subscribe(watcher)

	pid := e.SpawnFunc(func(c *Context) {
		if _, ok := c.Message().(triggerPanic); ok {
			panicWrapper()
		}
	}, "foo", WithMaxRestarts(0))
	require.NoError(t, e.Send(pid, triggerPanic{1}))

	select {
	case ev := <-ch:
		assert.True(t, pid.Equals(ev.PID))
		assert.Equal(t, "oh no", ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for max restarts event")
	}
	assert.Eventually(t, func() bool { return e.Send(pid, triggerPanic{2}) == ErrClosed }, time.Second, time.Millisecond)
}

func TestRestartKeepsUnprocessedMessages(t *testing.T) {
	e := newTestEngine(t)
	got := make(chan int, 4)
	release := make(chan struct{})
	pid := e.SpawnFunc(func(c *Context) {
		if m, ok := c.Message().(triggerPanic); ok {
			if m.data == 0 {
				<-release
				return
			}
			if m.data == 1 {
				panicWrapper()
			}
			got <- m.data
		}
	}, "foo", WithRestartDelay(time.Millisecond), WithInboxSize(8))

	require.NoError(t, e.Send(pid, triggerPanic{0}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, e.Send(pid, triggerPanic{i}))
	}
	close(release)

	for _, want := range []int{2, 3} {
		select {
		case v := <-got:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("message lost across restart")
		}
	}
}

func panicWrapper() {
	panic("oh no")
}
