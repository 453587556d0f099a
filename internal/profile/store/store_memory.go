package store

import (
	"context"
	"sync"

	"idvgate/internal/verification/models"
	"idvgate/pkg/platform/sentinel"
)

// InMemoryStore keeps profile records in process.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.VerificationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.VerificationRecord)}
}

// MergeVerification merges update into the subject's stored record.
func (s *InMemoryStore) MergeVerification(_ context.Context, subjectID string, update models.VerificationRecord) (*models.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.VerificationRecord
	if existing, ok := s.records[subjectID]; ok {
		current = &existing
	}
	merged := merge(current, update)
	s.records[subjectID] = merged
	return &merged, nil
}

// FindVerification returns the stored record or sentinel.ErrNotFound.
func (s *InMemoryStore) FindVerification(_ context.Context, subjectID string) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}
