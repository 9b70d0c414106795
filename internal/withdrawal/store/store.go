// Package store persists pending withdrawal verifications. The Redis
// implementation leans on key TTLs for expiry; the memory implementation
// checks expiry on read.
package store

import (
	"context"

	"pampermomma/internal/withdrawal/models"
	"pampermomma/pkg/domain"
	"pampermomma/pkg/platform/sentinel"
)

// ErrNotFound keeps storage 404s consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// OTPStore holds at most one pending verification per registry.
type OTPStore interface {
	// Save stores the request, replacing any pending one for the registry.
	Save(ctx context.Context, request *models.OTPRequest) error
	// Get returns the pending request, or ErrNotFound if none survives.
	Get(ctx context.Context, registryID domain.RegistryID) (*models.OTPRequest, error)
	// RecordFailure bumps the attempt counter on the pending request.
	RecordFailure(ctx context.Context, registryID domain.RegistryID) error
	// Delete removes the pending request. Deleting a missing request is not
	// an error.
	Delete(ctx context.Context, registryID domain.RegistryID) error
}
