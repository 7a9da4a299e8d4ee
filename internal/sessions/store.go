// Package sessions keeps schedule editor sessions in memory between
// requests.
package sessions

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/matchday/internal/schedule"
)

var ErrSessionNotFound = errors.New("session not found")

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session wraps one editor. Do serializes access so every edit is applied
// as a single step.
type Session struct {
	ID   uuid.UUID
	Name string

	mu       sync.Mutex
	editor   *schedule.Editor
	lastUsed atomic.Int64
}

// Do runs fn with exclusive access to the session's editor.
func (s *Session) Do(fn func(*schedule.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	clock    Clock
}

// NewStore creates an empty store. A nil clock uses wall time.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = realClock{}
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		clock:    clock,
	}
}

func (s *Store) Create(name string, editor *schedule.Editor) *Session {
	session := &Session{
		ID:     uuid.New(),
		Name:   name,
		editor: editor,
	}
	session.touch(s.clock.Now())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Debug().Str("session_id", session.ID.String()).Msg("Editor session created")
	return session
}

// Get returns the session and marks it as used.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(s.clock.Now())
	return session, nil
}

func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len reports how many sessions are open.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed. A non-positive maxIdle keeps everything.
func (s *Store) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Int("remaining", len(s.sessions)).Msg("Idle editor sessions evicted")
	}
	return removed
}
