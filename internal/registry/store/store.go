// Package store persists registries, their services, and the money movements
// recorded against them. Two implementations exist: an in-memory store for
// tests and local development, and a PostgreSQL store for production.
package store

import (
	"context"
	"time"

	"pampermomma/internal/registry/models"
	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
	"pampermomma/pkg/platform/sentinel"
)

// ErrNotFound keeps storage 404s consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// Store is the registry persistence contract. Reads return the full
// aggregate: registry, services, contributions, and withdrawals.
type Store interface {
	Create(ctx context.Context, registry *models.Registry) error
	GetByID(ctx context.Context, id domain.RegistryID) (*models.Registry, error)
	GetByShareableID(ctx context.Context, shareableID string) (*models.Registry, error)
	GetByServiceID(ctx context.Context, serviceID domain.ServiceID) (*models.Registry, error)

	// RecordContribution is idempotent on the processor intent id. Replays
	// of the same intent return ErrDuplicateIntent without writing.
	RecordContribution(ctx context.Context, contribution *models.Contribution) error
	FindContributionByIntent(ctx context.Context, intentID string) (*models.Contribution, error)
	SetContributionFee(ctx context.Context, id domain.ContributionID, fee money.Amount, availableOn *time.Time) error

	AddWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	SetWithdrawalStatus(ctx context.Context, id domain.WithdrawalID, status models.WithdrawalStatus) error
}

// ErrDuplicateIntent signals that a contribution for the same processor
// intent was already recorded. Callers treat it as a successful no-op.
var ErrDuplicateIntent = sentinel.ErrAlreadyUsed
