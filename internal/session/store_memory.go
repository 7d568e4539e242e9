package session

import (
	"context"
	"sync"

	"github.com/spec-kit/console-access/internal/domain"
)

// InMemoryStore keeps credentials in process memory. Used when Redis is not
// configured and in tests.
type InMemoryStore struct {
	mu      sync.Mutex
	byID    map[string]domain.Credential
	current map[string]string
	opts    options
}

// NewInMemory returns an empty store.
func NewInMemory(opts ...Option) *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]domain.Credential),
		current: make(map[string]string),
		opts:    buildOptions(opts),
	}
}

// Save implements Store.
func (s *InMemoryStore) Save(_ context.Context, cred *domain.Credential) error {
	if err := validateCredential(cred, s.opts.now()); err != nil {
		return err
	}
	stored := *cred
	stored.Patterns = append([]string(nil), cred.Patterns...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.current[cred.UserID]; ok && previous != cred.SessionID {
		delete(s.byID, previous)
	}
	s.byID[cred.SessionID] = stored
	s.current[cred.UserID] = cred.SessionID
	return nil
}

// Load implements Store.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[sessionID]
	if !ok {
		return nil, ErrAbsent
	}
	if s.current[cred.UserID] != sessionID {
		delete(s.byID, sessionID)
		return nil, ErrAbsent
	}
	if !cred.ExpiresAt.After(s.opts.now()) {
		s.removeLocked(cred)
		return nil, ErrAbsent
	}

	out := cred
	out.Patterns = append([]string(nil), cred.Patterns...)
	return &out, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byID[sessionID]; ok {
		s.removeLocked(cred)
	}
	return nil
}

func (s *InMemoryStore) removeLocked(cred domain.Credential) {
	delete(s.byID, cred.SessionID)
	if s.current[cred.UserID] == cred.SessionID {
		delete(s.current, cred.UserID)
	}
}
