package actor

import (
	"strings"

	"github.com/zeebo/xxh3"
)

var pidSeparator = "/"

// PID identifies a process. ID is the kind followed by the process id,
// for example "mailbox/alice/1".
type PID struct {
	Address string
	ID      string
}

// NewPID returns a new Process ID given an address and an id.
func NewPID(address, id string) *PID {
	return &PID{
		Address: address,
		ID:      id,
	}
}

func (pid *PID) String() string {
	return pid.Address + pidSeparator + pid.ID
}

func (pid *PID) GetID() string {
	if pid == nil {
		return ""
	}
	return pid.ID
}

func (pid *PID) Equals(other *PID) bool {
	if pid == nil || other == nil {
		return pid == other
	}
	return pid.Address == other.Address && pid.ID == other.ID
}

// Kind returns the first segment of the ID.
func (pid *PID) Kind() string {
	kind, _, _ := strings.Cut(pid.ID, pidSeparator)
	return kind
}

// LookupKey is the key the registry stores the process under.
func (pid *PID) LookupKey() uint64 {
	key := []byte(pid.Address)
	key = append(key, pid.ID...)
	return xxh3.Hash(key)
}
