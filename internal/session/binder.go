// Package session tracks which room and participant identity each live
// connection is bound to. The binder is the only place that association is
// mutated; connections themselves carry no session state.
package session

import "sync"

// Binding is the weak back-reference a connection holds into the room
// registry: just the room code and participant ID, never room internals.
type Binding struct {
	RoomCode      string
	ParticipantID string
}

// Binder is the side-table from connection ID to its current binding.
// A connection is either unbound or bound to exactly one room.
type Binder struct {
	mu     sync.Mutex
	byConn map[string]Binding
}

func NewBinder() *Binder {
	return &Binder{byConn: make(map[string]Binding)}
}

// Bind records the association for a connection. If the connection was
// already bound to a different room, the previous binding is returned so
// the caller can leave that room first; no connection may be a member of
// two rooms at once.
func (b *Binder) Bind(connID string, binding Binding) (Binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, wasBound := b.byConn[connID]
	b.byConn[connID] = binding
	if wasBound && prev == binding {
		return Binding{}, false
	}
	return prev, wasBound
}

// Unbind clears a connection's binding and returns what it was, if
// anything. Used for both explicit leaves and ungraceful disconnects.
func (b *Binder) Unbind(connID string) (Binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	binding, ok := b.byConn[connID]
	if ok {
		delete(b.byConn, connID)
	}
	return binding, ok
}

// Lookup returns the current binding without mutating it.
func (b *Binder) Lookup(connID string) (Binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	binding, ok := b.byConn[connID]
	return binding, ok
}

// Count returns how many connections are currently bound.
func (b *Binder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byConn)
}
