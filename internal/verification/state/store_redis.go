package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idvgate/pkg/platform/sentinel"
)

// RedisStore shares pending state across hook instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed pending-state store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save records the pending token with SET EX so it expires with the session.
func (s *RedisStore) Save(ctx context.Context, subjectID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(subjectID), token, ttl).Err(); err != nil {
		return fmt.Errorf("save pending state: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

// Consume atomically reads and deletes the pending token (GETDEL) so a
// result cannot be bound twice.
func (s *RedisStore) Consume(ctx context.Context, subjectID string) (string, error) {
	token, err := s.client.GetDel(ctx, key(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume pending state: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return token, nil
}
