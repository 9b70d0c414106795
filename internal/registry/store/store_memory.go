package store

import (
	"context"
	"sync"
	"time"

	"pampermomma/internal/registry/models"
	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

// MemoryStore keeps registries in process memory. It favors clarity over
// performance and returns deep copies so callers can never mutate shared
// state.
type MemoryStore struct {
	mu         sync.RWMutex
	registries map[domain.RegistryID]*models.Registry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{registries: make(map[domain.RegistryID]*models.Registry)}
}

func (s *MemoryStore) Create(_ context.Context, registry *models.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registries[registry.ID] = copyRegistry(registry)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id domain.RegistryID) (*models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reg, ok := s.registries[id]; ok {
		return copyRegistry(reg), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByShareableID(_ context.Context, shareableID string) (*models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.registries {
		if reg.ShareableID == shareableID {
			return copyRegistry(reg), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByServiceID(_ context.Context, serviceID domain.ServiceID) (*models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.registries {
		for i := range reg.Services {
			if reg.Services[i].ID == serviceID {
				return copyRegistry(reg), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) RecordContribution(_ context.Context, contribution *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registries {
		for i := range reg.Services {
			for j := range reg.Services[i].Contributions {
				if reg.Services[i].Contributions[j].ProcessorIntent == contribution.ProcessorIntent {
					return ErrDuplicateIntent
				}
			}
		}
	}
	for _, reg := range s.registries {
		for i := range reg.Services {
			if reg.Services[i].ID == contribution.ServiceID {
				reg.Services[i].Contributions = append(reg.Services[i].Contributions, *contribution)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) FindContributionByIntent(_ context.Context, intentID string) (*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.registries {
		for i := range reg.Services {
			for j := range reg.Services[i].Contributions {
				if reg.Services[i].Contributions[j].ProcessorIntent == intentID {
					c := reg.Services[i].Contributions[j]
					return &c, nil
				}
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SetContributionFee(_ context.Context, id domain.ContributionID, fee money.Amount, availableOn *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registries {
		for i := range reg.Services {
			for j := range reg.Services[i].Contributions {
				if reg.Services[i].Contributions[j].ID == id {
					reg.Services[i].Contributions[j].Fee = money.Some(fee)
					reg.Services[i].Contributions[j].AvailableOn = availableOn
					reg.Services[i].Contributions[j].UpdatedAt = time.Now().UTC()
					return nil
				}
			}
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) AddWithdrawal(_ context.Context, withdrawal *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.registries[withdrawal.RegistryID]; ok {
		reg.Withdrawals = append(reg.Withdrawals, *withdrawal)
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) SetWithdrawalStatus(_ context.Context, id domain.WithdrawalID, status models.WithdrawalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registries {
		for i := range reg.Withdrawals {
			if reg.Withdrawals[i].ID == id {
				reg.Withdrawals[i].Status = status
				return nil
			}
		}
	}
	return ErrNotFound
}

func copyRegistry(reg *models.Registry) *models.Registry {
	out := *reg
	out.Services = make([]models.Service, len(reg.Services))
	for i := range reg.Services {
		out.Services[i] = reg.Services[i]
		out.Services[i].Contributions = append([]models.Contribution(nil), reg.Services[i].Contributions...)
	}
	out.Withdrawals = append([]models.Withdrawal(nil), reg.Withdrawals...)
	return &out
}
