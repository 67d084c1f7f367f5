package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions for the life of the process.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	historyLimit int
	now          func() time.Time
}

func NewMemoryStore(historyLimit int) *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context) (*Session, error) {
	s := New("", m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	c := s.Clone()
	c.trim(m.historyLimit)
	c.UpdatedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[c.ID] = c
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
