// Package registry is the concurrency-safe store of live speaking sessions.
// It is the only mutable state shared across connections; every method is a
// whole operation under one lock so callers never see partial mutations, and
// no I/O ever happens while the lock is held.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionLimitReached = errors.New("active session limit reached")

// Session is one learner's pronunciation-practice attempt. Values handed out
// by the registry are copies; mutations go through registry methods only.
type Session struct {
	ID           string
	OwnerID      string
	LessonID     string
	ExpectedText string
	StartedAt    time.Time
	Active       bool
}

type Registry struct {
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(maxSessions int) *Registry {
	return &Registry{
		maxSessions: maxSessions,
		sessions:    make(map[string]*Session),
	}
}

// Create inserts a new active session owned by ownerID and returns a copy of
// it. Fails only when the active-session bound is reached.
func (r *Registry) Create(ownerID, lessonID, expectedText string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		return Session{}, ErrSessionLimitReached
	}

	s := &Session{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		LessonID:     lessonID,
		ExpectedText: expectedText,
		StartedAt:    time.Now().UTC(),
		Active:       true,
	}
	r.sessions[s.ID] = s
	return *s, nil
}

func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// DeactivateResult reports the outcome of TryDeactivate.
type DeactivateResult int

const (
	Deactivated DeactivateResult = iota
	AlreadyInactive
	NotFound
)

// TryDeactivate atomically flips a session from active to inactive. Exactly
// one caller wins for a given session; everyone else observes
// AlreadyInactive and must not publish final results.
func (r *Registry) TryDeactivate(sessionID string) DeactivateResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return NotFound
	}
	if !s.Active {
		return AlreadyInactive
	}
	s.Active = false
	return Deactivated
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// RemoveAllOwnedBy discards every session the given owner holds and returns
// the removed ids. Used on disconnect.
func (r *Registry) RemoveAllOwnedBy(ownerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, s := range r.sessions {
		if s.OwnerID == ownerID {
			removed = append(removed, id)
			delete(r.sessions, id)
		}
	}
	return removed
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.sessions {
		if s.Active {
			n++
		}
	}
	return n
}
