package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/chatbot/internal/domain"
	"github.com/PabloGalante/chatbot/internal/observability"
)

type entry struct {
	session  *domain.Session
	lastSeen time.Time
	inFlight int // turns waiting on the provider
}

// SessionStore is an in-memory implementation of domain.SessionStore.
// Sessions live until they are deleted, swept for idleness, or the process exits.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*entry
	now      func() time.Time
}

// NewSessionStore creates an empty in-memory SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*entry),
		now:      time.Now,
	}
}

func (s *SessionStore) Initialize(id domain.SessionID, modelID string) (*domain.Session, bool) {
	if id == "" {
		id = NewSessionID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.sessions[id]; ok {
		e.lastSeen = now
		return e.session, false
	}

	session := domain.NewSession(id, modelID, now)
	s.sessions[id] = &entry{session: session, lastSeen: now}
	return session, true
}

func (s *SessionStore) GetSession(id domain.SessionID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = s.now()

	return e.session, nil
}

func (s *SessionStore) DeleteSession(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// BeginTurn marks a turn as in flight for id so Sweep leaves the session alone.
// The returned func ends the turn and counts as activity.
func (s *SessionStore) BeginTurn(id domain.SessionID) (end func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return func() {}
	}
	e.inFlight++
	e.lastSeen = s.now()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e.inFlight--
			e.lastSeen = s.now()
		})
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep ends every session that has not been touched for longer than idle
// and has no turn in flight. It returns how many were removed.
func (s *SessionStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	removed := 0
	for id, e := range s.sessions {
		if e.inFlight == 0 && e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval, idle time.Duration) error {
	log := observability.WithFields("component", "session_janitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				log.Info("expired idle sessions", "removed", n, "remaining", s.Len())
			}
		}
	}
}

// NewSessionID returns a fresh time-ordered session identifier.
func NewSessionID() domain.SessionID {
	return domain.SessionID(uuid.Must(uuid.NewV7()).String())
}
