package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/mekanizma/modli/backend/internal/errs"
)

const sessionKeyPrefix = "admin:session:"

// SessionStore maps opaque admin tokens to the admin's email in Redis.
// Sessions expire on their own after ttl.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, email, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store admin session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errs.ErrUnauthorized
	}
	email, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", errs.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("failed to read admin session: %w", err)
	}
	return email, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete admin session: %w", err)
	}
	return nil
}
