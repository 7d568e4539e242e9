package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/console-access/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCredential(userID string, expiresAt time.Time) *domain.Credential {
	return &domain.Credential{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Role:      domain.RoleAdmin,
		Token:     "token-" + uuid.NewString(),
		ExpiresAt: expiresAt,
		IssuedAt:  expiresAt.Add(-time.Hour),
		Patterns:  []string{"/", "/user/*"},
	}
}

type InMemoryStoreSuite struct {
	suite.Suite
	clock *fakeClock
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	s.store = NewInMemory(WithClock(s.clock.Now))
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestSaveAndLoad() {
	s.Run("returns the saved credential", func() {
		cred := newCredential("u-1", s.clock.Now().Add(time.Hour))
		s.Require().NoError(s.store.Save(s.ctx, cred))

		loaded, err := s.store.Load(s.ctx, cred.SessionID)
		s.Require().NoError(err)
		s.Equal(cred, loaded)
	})

	s.Run("unknown session is absent", func() {
		_, err := s.store.Load(s.ctx, uuid.NewString())
		s.ErrorIs(err, ErrAbsent)
	})

	s.Run("loaded patterns are a copy", func() {
		cred := newCredential("u-2", s.clock.Now().Add(time.Hour))
		s.Require().NoError(s.store.Save(s.ctx, cred))

		loaded, err := s.store.Load(s.ctx, cred.SessionID)
		s.Require().NoError(err)
		loaded.Patterns[0] = "/mutated"

		again, err := s.store.Load(s.ctx, cred.SessionID)
		s.Require().NoError(err)
		s.Equal("/", again.Patterns[0])
	})
}

func (s *InMemoryStoreSuite) TestSaveRejectsIncompleteCredentials() {
	valid := func() *domain.Credential { return newCredential("u-1", s.clock.Now().Add(time.Hour)) }

	cases := map[string]*domain.Credential{
		"nil":             nil,
		"no session id":   func() *domain.Credential { c := valid(); c.SessionID = ""; return c }(),
		"no user id":      func() *domain.Credential { c := valid(); c.UserID = ""; return c }(),
		"no token":        func() *domain.Credential { c := valid(); c.Token = ""; return c }(),
		"already expired": func() *domain.Credential { c := valid(); c.ExpiresAt = s.clock.Now(); return c }(),
	}
	for name, cred := range cases {
		s.Run(name, func() {
			s.Error(s.store.Save(s.ctx, cred))
		})
	}
}

func (s *InMemoryStoreSuite) TestExpiredCredentialIsAbsent() {
	cred := newCredential("u-1", s.clock.Now().Add(time.Minute))
	s.Require().NoError(s.store.Save(s.ctx, cred))

	s.clock.Advance(time.Minute)

	_, err := s.store.Load(s.ctx, cred.SessionID)
	s.ErrorIs(err, ErrAbsent)

	// The record is gone, not merely hidden.
	s.clock.Advance(-time.Hour)
	_, err = s.store.Load(s.ctx, cred.SessionID)
	s.ErrorIs(err, ErrAbsent)
}

func (s *InMemoryStoreSuite) TestNewerSignInSupersedes() {
	first := newCredential("u-1", s.clock.Now().Add(time.Hour))
	second := newCredential("u-1", s.clock.Now().Add(2*time.Hour))
	other := newCredential("u-2", s.clock.Now().Add(time.Hour))

	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Require().NoError(s.store.Save(s.ctx, other))
	s.Require().NoError(s.store.Save(s.ctx, second))

	_, err := s.store.Load(s.ctx, first.SessionID)
	s.ErrorIs(err, ErrAbsent)

	loaded, err := s.store.Load(s.ctx, second.SessionID)
	s.Require().NoError(err)
	s.Equal(second.SessionID, loaded.SessionID)

	_, err = s.store.Load(s.ctx, other.SessionID)
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestDelete() {
	s.Run("removes the credential", func() {
		cred := newCredential("u-1", s.clock.Now().Add(time.Hour))
		s.Require().NoError(s.store.Save(s.ctx, cred))
		s.Require().NoError(s.store.Delete(s.ctx, cred.SessionID))

		_, err := s.store.Load(s.ctx, cred.SessionID)
		s.ErrorIs(err, ErrAbsent)
	})

	s.Run("deleting an absent session succeeds", func() {
		s.NoError(s.store.Delete(s.ctx, uuid.NewString()))
	})

	s.Run("deleting a superseded session keeps the current one", func() {
		first := newCredential("u-3", s.clock.Now().Add(time.Hour))
		second := newCredential("u-3", s.clock.Now().Add(time.Hour))
		s.Require().NoError(s.store.Save(s.ctx, first))
		s.Require().NoError(s.store.Save(s.ctx, second))

		s.Require().NoError(s.store.Delete(s.ctx, first.SessionID))

		_, err := s.store.Load(s.ctx, second.SessionID)
		s.NoError(err)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentAccess() {
	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred := newCredential(uuid.NewString(), s.clock.Now().Add(time.Hour))
			if err := s.store.Save(s.ctx, cred); err != nil {
				s.T().Errorf("save: %v", err)
				return
			}
			if _, err := s.store.Load(s.ctx, cred.SessionID); err != nil {
				s.T().Errorf("load: %v", err)
			}
			_ = s.store.Delete(s.ctx, cred.SessionID)
		}()
	}
	wg.Wait()
}
