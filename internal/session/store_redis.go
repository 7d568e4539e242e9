package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/console-access/internal/domain"
)

const (
	sessionKeyPrefix = "console:session:"
	userKeyPrefix    = "console:session:user:"
	maxSaveAttempts  = 5
)

// RedisStore keeps credentials in Redis so every API instance sees the same
// sessions. Records expire with the credential; a per-user key points at the
// latest session so earlier ones read as absent.
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }
func userKey(userID string) string       { return userKeyPrefix + userID }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, cred *domain.Credential) error {
	now := s.opts.now()
	if err := validateCredential(cred, now); err != nil {
		return err
	}
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	ttl := cred.ExpiresAt.Sub(now)

	pointer := userKey(cred.UserID)
	save := func(tx *redis.Tx) error {
		previous, err := tx.Get(ctx, pointer).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey(cred.SessionID), payload, ttl)
			pipe.Set(ctx, pointer, cred.SessionID, ttl)
			if previous != "" && previous != cred.SessionID {
				pipe.Del(ctx, sessionKey(previous))
			}
			return nil
		})
		return err
	}

	// A concurrent sign-in for the same user moves the pointer under us;
	// retry so the session it replaced is removed too.
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		err = s.client.Watch(ctx, save, pointer)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*domain.Credential, error) {
	if sessionID == "" {
		return nil, ErrAbsent
	}
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(payload, &cred); err != nil {
		// A record we cannot read is no session at all.
		_ = s.client.Del(ctx, sessionKey(sessionID)).Err()
		return nil, ErrAbsent
	}

	current, err := s.client.Get(ctx, userKey(cred.UserID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load current session: %w", err)
	}
	if current != sessionID {
		return nil, ErrAbsent
	}

	if !cred.ExpiresAt.After(s.opts.now()) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrAbsent
	}
	return &cred, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	var cred domain.Credential
	if err := json.Unmarshal(payload, &cred); err != nil || cred.UserID == "" {
		return s.client.Del(ctx, sessionKey(sessionID)).Err()
	}

	pointer := userKey(cred.UserID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, pointer).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, sessionKey(sessionID))
			if current == sessionID {
				pipe.Del(ctx, pointer)
			}
			return nil
		})
		return err
	}, pointer)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
