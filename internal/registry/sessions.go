// Package registry holds the relay state shared by every connection: live
// sessions, claimed usernames and the federation directory. Each registry
// guards its own map and never hands it out; callers only see snapshots.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Sessions tracks live connections for broadcast.
type Sessions[S any] struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]S
}

func NewSessions[S any]() *Sessions[S] {
	return &Sessions[S]{sessions: make(map[uuid.UUID]S)}
}

// Register adds s under a fresh ID.
func (r *Sessions[S]) Register(s S) uuid.UUID {
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = s
	return id
}

// Unregister removes id and reports whether it was present.
func (r *Sessions[S]) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Snapshot copies the current members out from under the lock.
func (r *Sessions[S]) Snapshot() []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Values(r.sessions)
}

// ForEach calls fn for every member of a snapshot. fn runs without the lock
// held, so it may block on I/O or call back into the registry.
func (r *Sessions[S]) ForEach(fn func(S)) {
	for _, s := range r.Snapshot() {
		fn(s)
	}
}

func (r *Sessions[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
