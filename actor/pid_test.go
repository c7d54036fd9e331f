package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func BenchmarkLookupKey(b *testing.B) {
	pid := NewPID("127.0.0.1:3000", "foo")
	for i := 0; i < b.N; i++ {
		pid.LookupKey()
	}
}

func BenchmarkNewPID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewPID("127.0.0.1:3000", "foo")
	}
}

func TestPID(t *testing.T) {
	address := "127.0.0.1:3000"
	id := "foo"

	pid := NewPID(address, id)
	assert.Equal(t, address+pidSeparator+id, pid.String())
	assert.Equal(t, id, pid.GetID())
}

func TestPIDKind(t *testing.T) {
	pid := NewPID(LocalLookupAddr, "mailbox/team/alice/2")
	assert.Equal(t, "mailbox", pid.Kind())
	assert.Equal(t, "switchboard", NewPID(LocalLookupAddr, "switchboard").Kind())
}

func TestPIDEquals(t *testing.T) {
	a := NewPID(LocalLookupAddr, "a")
	assert.True(t, a.Equals(NewPID(LocalLookupAddr, "a")))
	assert.False(t, a.Equals(NewPID(LocalLookupAddr, "b")))
	assert.False(t, a.Equals(nil))

	var none *PID
	assert.True(t, none.Equals(nil))
	assert.Equal(t, "", none.GetID())
}

func TestLookupKeyDistinguishesAddress(t *testing.T) {
	a := NewPID("local", "foo")
	b := NewPID("remote", "foo")
	assert.NotEqual(t, a.LookupKey(), b.LookupKey())
	assert.Equal(t, a.LookupKey(), NewPID("local", "foo").LookupKey())
}
