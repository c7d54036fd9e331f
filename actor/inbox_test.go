package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxSendAndProcess(t *testing.T) {
	inbox := NewInbox(10)
	processedMessages := make(chan Envelope, 10)
	mockProc := MockProcesser{
		processFunc: func(envelopes []Envelope) {
			for _, e := range envelopes {
				processedMessages <- e
			}
		},
	}
	inbox.Start(mockProc)
	require.NoError(t, inbox.Send(Envelope{Msg: 1}))
	select {
	case env := <-processedMessages:
		assert.Equal(t, 1, env.Msg)
	case <-time.After(time.Second):
		t.Errorf("Message was not processed in time")
	}

	inbox.Stop()
}

func TestInboxPreservesOrder(t *testing.T) {
	inbox := NewInbox(4)
	got := make(chan int, 100)
	inbox.Start(MockProcesser{processFunc: func(envelopes []Envelope) {
		for _, e := range envelopes {
			got <- e.Msg.(int)
		}
	}})
	for i := 0; i < 100; i++ {
		require.NoError(t, inbox.Send(Envelope{Msg: i}))
	}
	for i := 0; i < 100; i++ {
		assert.Equal(t, i, <-got)
	}
	inbox.Stop()
}

func TestInboxSendAfterStop(t *testing.T) {
	inbox := NewInbox(1)
	inbox.Start(MockProcesser{processFunc: func([]Envelope) {}})
	inbox.Stop()
	inbox.Stop()

	assert.ErrorIs(t, inbox.Send(Envelope{}), ErrClosed)
	select {
	case <-inbox.Done():
	default:
		t.Fatal("done should be closed after Stop")
	}
}

func TestInboxStopUnblocksSender(t *testing.T) {
	inbox := NewInbox(1)
	// never started, so nothing drains the queue.
	require.NoError(t, inbox.Send(Envelope{}))

	errc := make(chan error, 1)
	go func() { errc <- inbox.Send(Envelope{}) }()
	time.Sleep(5 * time.Millisecond)
	inbox.Stop()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("sender stayed blocked after Stop")
	}
}

type MockProcesser struct {
	processFunc func([]Envelope)
}

func (m MockProcesser) Start() {}
func (m MockProcesser) PID() *PID {
	return nil
}
func (m MockProcesser) Send(*PID, any, *PID) error { return nil }
func (m MockProcesser) Invoke(envelopes []Envelope) {
	m.processFunc(envelopes)
}
func (m MockProcesser) Shutdown()             {}
func (m MockProcesser) Done() <-chan struct{} { return nil }

func TestInboxTrySend(t *testing.T) {
	inbox := NewInbox(1)
	// never started, so the first envelope fills the queue.
	require.NoError(t, inbox.TrySend(Envelope{Msg: 1}))
	assert.ErrorIs(t, inbox.TrySend(Envelope{Msg: 2}), ErrFull)

	inbox.Stop()
	assert.ErrorIs(t, inbox.TrySend(Envelope{Msg: 3}), ErrClosed)
}

func TestInboxSendRacingStop(t *testing.T) {
	for round := 0; round < 50; round++ {
		inbox := NewInbox(64)
		var (
			wg      sync.WaitGroup
			results = make(chan error, 32)
		)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- inbox.Send(Envelope{Msg: i})
			}()
		}
		inbox.Stop()
		wg.Wait()
		close(results)

		for err := range results {
			if err != nil {
				assert.ErrorIs(t, err, ErrClosed)
			}
		}
		// once Stop returned no send is accepted.
		assert.ErrorIs(t, inbox.Send(Envelope{}), ErrClosed)
	}
}
