package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore 进程内会话存储，开发与测试用
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore ...
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create ...
func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	stored, err := sess.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.SessionID]; ok {
		return ErrSessionExists
	}
	s.sessions[sess.SessionID] = stored
	return nil
}

// GetByID ...
func (s *MemoryStore) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return stored.Clone()
}

// CompareAndSwap ...
func (s *MemoryStore) CompareAndSwap(ctx context.Context, expectedVersion time.Time, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	stored, err := sess.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if !current.UpdatedAt.Equal(expectedVersion) {
		return ErrConcurrencyConflict
	}
	s.sessions[sess.SessionID] = stored
	return nil
}

// ListActive ...
func (s *MemoryStore) ListActive(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*Session
	for _, stored := range s.sessions {
		if stored.Status.Terminal() {
			continue
		}
		out, err := stored.Clone()
		if err != nil {
			return nil, err
		}
		active = append(active, out)
	}
	return active, nil
}
