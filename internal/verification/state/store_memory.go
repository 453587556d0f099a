package state

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"idvgate/pkg/platform/sentinel"
)

const cleanupInterval = time.Minute

// MemoryStore keeps pending state in process. Use it for single-instance
// deployments; a redirect that returns to another instance will not bind.
type MemoryStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryStore creates an in-process store with defaultTTL for entries
// saved without an explicit TTL.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(defaultTTL, cleanupInterval)}
}

// Save records the pending correlation token for a subject, replacing any
// earlier one.
func (s *MemoryStore) Save(_ context.Context, subjectID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key(subjectID), token, ttl)
	return nil
}

// Consume returns and removes the pending token. Expired or missing entries
// yield sentinel.ErrNotFound. Concurrent consumers of one entry see it at
// most once.
func (s *MemoryStore) Consume(_ context.Context, subjectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(subjectID)
	v, ok := s.c.Get(k)
	if !ok {
		return "", sentinel.ErrNotFound
	}
	s.c.Delete(k)
	token, _ := v.(string)
	return token, nil
}
