package store

import (
	"context"
	"sync"
	"time"

	"pampermomma/internal/withdrawal/models"
	"pampermomma/pkg/domain"
)

// MemoryStore keeps pending verifications in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[domain.RegistryID]*models.OTPRequest
	now      func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		requests: make(map[domain.RegistryID]*models.OTPRequest),
		now:      time.Now,
	}
}

// WithClock overrides the expiry clock, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Save(_ context.Context, request *models.OTPRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *request
	s.requests[request.RegistryID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, registryID domain.RegistryID) (*models.OTPRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[registryID]
	if !ok {
		return nil, ErrNotFound
	}
	if request.Expired(s.now()) {
		delete(s.requests, registryID)
		return nil, ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, registryID domain.RegistryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[registryID]
	if !ok {
		return ErrNotFound
	}
	request.Attempts++
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, registryID domain.RegistryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, registryID)
	return nil
}
