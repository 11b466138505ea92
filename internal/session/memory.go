package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store for dev and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create stores a copy of the session.
func (m *MemoryStore) Create(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Active = true
	s.CreatedAt = time.Now().UTC()
	s.EnrolledStudents = append([]string(nil), s.EnrolledStudents...)
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a copy so callers cannot mutate stored state.
func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.EnrolledStudents = append([]string(nil), s.EnrolledStudents...)
	return s, nil
}

// SetCredential overwrites the active credential under the store lock.
func (m *MemoryStore) SetCredential(_ context.Context, id, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.QRToken = &token
	s.QRExpiry = &expiry
	m.sessions[id] = s
	return nil
}

// IncrementAttendance bumps the display counter.
func (m *MemoryStore) IncrementAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.AttendanceCount++
	m.sessions[id] = s
	return nil
}

// Deactivate turns a session off.
func (m *MemoryStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = false
	m.sessions[id] = s
	return nil
}
