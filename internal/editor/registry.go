package editor

import (
	"context"
	"sync"
	"time"
)

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// openLock serializes Open for one user. It is removed once the last
// waiter leaves.
type openLock struct {
	mu      sync.Mutex
	waiters int
}

// Registry keeps one open session per user so that consecutive requests
// edit the same unsaved state.
type Registry struct {
	Deps    Deps
	IdleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*registryEntry
	opening  map[string]*openLock
	now      func() time.Time
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		Deps:     deps,
		IdleTTL:  idleTTL,
		sessions: map[string]*registryEntry{},
		opening:  map[string]*openLock{},
		now:      time.Now,
	}
}

// Get returns the user's session, opening one when none is live.
func (r *Registry) Get(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	if entry, ok := r.sessions[userID]; ok && !r.expired(entry) {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.session, nil
	}
	lock, ok := r.opening[userID]
	if !ok {
		lock = &openLock{}
		r.opening[userID] = lock
	}
	lock.waiters++
	r.mu.Unlock()

	lock.mu.Lock()
	defer r.releaseOpen(userID, lock)

	r.mu.Lock()
	if entry, ok := r.sessions[userID]; ok && !r.expired(entry) {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.session, nil
	}
	stale := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if stale != nil {
		stale.session.Close()
	}

	session, err := Open(ctx, userID, r.Deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[userID] = &registryEntry{session: session, lastSeen: r.now()}
	r.mu.Unlock()
	return session, nil
}

func (r *Registry) releaseOpen(userID string, lock *openLock) {
	lock.mu.Unlock()
	r.mu.Lock()
	lock.waiters--
	if lock.waiters == 0 {
		delete(r.opening, userID)
	}
	r.mu.Unlock()
}

// Peek returns the live session without opening one.
func (r *Registry) Peek(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[userID]
	if !ok || r.expired(entry) {
		return nil, false
	}
	return entry.session, true
}

// Drop closes and forgets the user's session.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	entry := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if entry != nil {
		entry.session.Close()
	}
}

// Sweep closes sessions idle for longer than IdleTTL and returns how many
// it closed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	var expired []*Session
	for userID, entry := range r.sessions {
		if r.expired(entry) {
			expired = append(expired, entry.session)
			delete(r.sessions, userID)
		}
	}
	r.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	return len(expired)
}

func (r *Registry) expired(entry *registryEntry) bool {
	return r.IdleTTL > 0 && r.now().Sub(entry.lastSeen) > r.IdleTTL
}

// StartSweeper closes idle sessions every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Len is the number of sessions held, expired ones included until swept.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
