package actor

import (
	"github.com/anthdm/relay/safemap"
)

const LocalLookupAddr = "local"

// Registry maps live PIDs to their processes. A process is present from
// the moment it is spawned until its inbox is closed.
type Registry struct {
	lookup *safemap.SafeMap[uint64, Processer]
	engine *Engine
}

func newRegistry(e *Engine) *Registry {
	return &Registry{
		lookup: safemap.New[uint64, Processer](),
		engine: e,
	}
}

// Remove deregisters proc. A newer process registered under the same PID
// is left in place.
func (r *Registry) Remove(proc Processer) {
	r.lookup.DeleteFunc(proc.PID().LookupKey(), func(current Processer) bool {
		return current == proc
	})
}

// get returns the process for pid, or the dead letter process when no
// such process is registered.
func (r *Registry) get(pid *PID) Processer {
	if pid == nil {
		return r.engine.deadLetter
	}
	if proc, ok := r.lookup.Get(pid.LookupKey()); ok {
		return proc
	}
	return r.engine.deadLetter
}

// Len returns the number of registered processes, the dead letter included.
func (r *Registry) Len() int {
	return r.lookup.Len()
}

// add registers proc. It reports false and broadcasts an
// ActorDuplicateIdEvent when the PID is already taken.
func (r *Registry) add(proc Processer) bool {
	if _, ok := r.lookup.SetIfAbsent(proc.PID().LookupKey(), proc); !ok {
		r.engine.BroadcastEvent(ActorDuplicateIdEvent{PID: proc.PID()})
		return false
	}
	return true
}
