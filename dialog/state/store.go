package state

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound    = errors.New("session state not found")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrNilSessionState  = errors.New("session state is nil")
)

// Store is the persistence contract used by the engine. Load returns
// ErrStateNotFound for unknown users; backend failures wrap
// ErrStoreUnavailable. Save is all-or-nothing.
type Store interface {
	Load(ctx context.Context, userID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, userID string) error
}

// StaleLister is implemented by stores that can enumerate idle sessions for
// the eviction sweep. Stores with native TTL (Redis) don't need it.
type StaleLister interface {
	StaleSessions(ctx context.Context, idleSince time.Time) ([]string, error)
}

// MemoryStore keeps sessions in process memory. It hands out deep copies on
// both Load and Save, so callers can never mutate stored state in place.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*SessionState)}
}

func (m *MemoryStore) Load(ctx context.Context, userID string) (*SessionState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(st.UserID) == "" {
		return ErrInvalidUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.UserID] = st.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) StaleSessions(ctx context.Context, idleSince time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, st := range m.sessions {
		if st.UpdatedAt.Before(idleSince) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
