// Package service assembles registry snapshots for the three read surfaces:
// the owner dashboard, the public share page, and the shared-by-id view.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"pampermomma/internal/payment/processor"
	"pampermomma/internal/registry/models"
	"pampermomma/internal/registry/store"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

// feeLookupLimit bounds concurrent processor lookups during fee enrichment.
const feeLookupLimit = 4

// Service serves registry snapshots.
type Service struct {
	registries store.Store
	processor  processor.Client
	logger     *slog.Logger
}

// New creates a registry Service.
func New(registries store.Store, client processor.Client, logger *slog.Logger) *Service {
	return &Service{
		registries: registries,
		processor:  client,
		logger:     logger,
	}
}

// OwnerSnapshot returns the owner's full financial view. Contributions still
// missing fee data are enriched from the processor before the snapshot is
// built; enrichment is best effort and never fails the read.
func (s *Service) OwnerSnapshot(ctx context.Context, ownerID domain.UserID, registryID domain.RegistryID) (*models.RegistrySnapshot, error) {
	reg, err := s.registries.GetByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registry not found")
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if reg.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "registry belongs to another user")
	}

	s.enrichFees(ctx, reg)

	opts := models.SnapshotOptions{
		Viewer:            ownerID,
		IncludeFinancials: true,
	}
	if reg.PayoutsEnabled && reg.PayoutAccount != "" {
		if balance, err := s.processor.GetBalance(ctx, reg.PayoutAccount); err != nil {
			s.logger.WarnContext(ctx, "processor balance unavailable",
				"registry_id", registryID,
				"error", err.Error(),
			)
		} else {
			opts.Balance = &models.ProcessorBalance{
				Available: balance.AvailableTotal(),
				Pending:   balance.PendingTotal(),
			}
		}
	}
	snap := reg.Snapshot(opts)
	return &snap, nil
}

// SharedSnapshot returns the view a link recipient sees for a registry id.
func (s *Service) SharedSnapshot(ctx context.Context, viewer domain.UserID, registryID domain.RegistryID) (*models.RegistrySnapshot, error) {
	reg, err := s.registries.GetByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registry not found")
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	snap := reg.Snapshot(models.SnapshotOptions{Viewer: viewer})
	return &snap, nil
}

// PublicSnapshot resolves a shareable id to the guest view.
func (s *Service) PublicSnapshot(ctx context.Context, shareableID string) (*models.RegistrySnapshot, error) {
	if shareableID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "shareable id is required")
	}
	reg, err := s.registries.GetByShareableID(ctx, shareableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registry not found")
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	snap := reg.Snapshot(models.SnapshotOptions{})
	return &snap, nil
}

// enrichFees backfills fee and settlement data for confirmed contributions
// recorded before their balance transaction settled. Lookups run
// concurrently with a small bound; a failed lookup leaves the field absent
// for the next read to retry.
func (s *Service) enrichFees(ctx context.Context, reg *models.Registry) {
	type target struct {
		service, contribution int
	}
	var targets []target
	for i := range reg.Services {
		for j := range reg.Services[i].Contributions {
			c := &reg.Services[i].Contributions[j]
			if c.Fulfilled() && !c.Fee.Valid && c.ProcessorIntent != "" {
				targets = append(targets, target{i, j})
			}
		}
	}
	if len(targets) == 0 {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feeLookupLimit)
	for _, tgt := range targets {
		contribution := &reg.Services[tgt.service].Contributions[tgt.contribution]
		g.Go(func() error {
			intent, err := s.processor.GetIntent(gctx, contribution.ProcessorIntent)
			if err != nil {
				s.logger.WarnContext(gctx, "fee lookup failed",
					"intent_id", contribution.ProcessorIntent,
					"error", err.Error(),
				)
				return nil
			}
			charge := intent.LatestCharge
			if charge == nil || charge.BalanceTransaction == nil {
				return nil
			}

			fee := charge.BalanceTransaction.FeeMoney()
			availableOn := charge.BalanceTransaction.AvailableOnTime()
			if err := s.registries.SetContributionFee(gctx, contribution.ID, fee, &availableOn); err != nil {
				s.logger.WarnContext(gctx, "fee persist failed",
					"contribution_id", contribution.ID,
					"error", err.Error(),
				)
				return nil
			}

			mu.Lock()
			contribution.Fee = money.Some(fee)
			contribution.AvailableOn = &availableOn
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
