package withdrawal

import (
	"sync"

	dErrors "pampermomma/pkg/domain-errors"
)

// Sessions hands out at most one live withdrawal workflow per registry.
// A session stays claimed until its workflow succeeds or is cancelled.
type Sessions struct {
	mu     sync.Mutex
	client Client
	open   map[string]*Workflow
}

// NewSessions builds an empty session table over the given server client.
func NewSessions(client Client) *Sessions {
	return &Sessions{client: client, open: make(map[string]*Workflow)}
}

// Begin claims the registry's session slot and returns a fresh workflow.
// A second Begin while one is mid-flight fails with a conflict.
func (s *Sessions) Begin(registryID, ownerEmail string, opts ...Option) (*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.open[registryID]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "a withdrawal is already in progress for this registry")
	}

	w := New(s.client, registryID, ownerEmail, opts...)
	w.onClose = func() { s.release(registryID) }
	s.open[registryID] = w
	return w, nil
}

func (s *Sessions) release(registryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, registryID)
}
