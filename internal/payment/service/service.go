// Package service implements contribution payment orchestration: intent
// creation ahead of the card hand-off, and webhook ingestion afterwards.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pampermomma/internal/notification"
	"pampermomma/internal/payment/processor"
	"pampermomma/internal/platform/metrics"
	"pampermomma/internal/registry/models"
	"pampermomma/internal/registry/store"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/email"
	"pampermomma/pkg/money"
)

// MinimumCharge is the processor floor for a card charge. The UI keeps its
// own higher floor; this is the last line.
var MinimumCharge = money.MustParse("0.50")

// Service orchestrates contribution payments.
type Service struct {
	registries store.Store
	processor  processor.Client
	notifier   notification.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a payment Service.
func New(registries store.Store, client processor.Client, notifier notification.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registries: registries,
		processor:  client,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntentParams describes a contributor's pledge.
type CreateIntentParams struct {
	ServiceID        domain.ServiceID
	Amount           money.Amount
	ContributorName  string
	ContributorEmail string
}

// IntentResult carries what the card form needs to confirm the payment.
type IntentResult struct {
	IntentID     string
	ClientSecret string
}

// CreateIntent validates the pledge against the service's funding state and
// opens a processor intent. Metadata ties the intent back to the service so
// the webhook can record the contribution without trusting the client.
func (s *Service) CreateIntent(ctx context.Context, params CreateIntentParams) (*IntentResult, error) {
	if params.Amount.LessThan(MinimumCharge) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "amount must be at least $%s", MinimumCharge)
	}

	reg, err := s.registries.GetByServiceID(ctx, params.ServiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, fmt.Errorf("load registry for service: %w", err)
	}

	svc := reg.ServiceByID(params.ServiceID)
	if svc == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
	}
	if !svc.IsAvailable() {
		return nil, dErrors.New(dErrors.CodeConflict, "service is not accepting contributions")
	}
	if params.Amount.GreaterThan(svc.Remaining()) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "amount exceeds the $%s remaining for this service", svc.Remaining())
	}

	intent, err := s.processor.CreateIntent(ctx, processor.CreateIntentRequest{
		Amount:       params.Amount,
		ReceiptEmail: params.ContributorEmail,
		Metadata: map[string]string{
			"service_id":        params.ServiceID.String(),
			"registry_id":       reg.ID.String(),
			"contributor_name":  params.ContributorName,
			"contributor_email": params.ContributorEmail,
		},
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentIntentsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "payment intent created",
		"intent_id", intent.ID,
		"service_id", params.ServiceID,
		"amount", params.Amount,
	)
	return &IntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// HandleEvent ingests a verified processor event. Succeeded intents record a
// contribution exactly once; replays are acknowledged without a second write.
func (s *Service) HandleEvent(ctx context.Context, event *processor.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		intent, err := event.Intent()
		if err != nil {
			return err
		}
		return s.recordContribution(ctx, intent)
	case "payment_intent.payment_failed":
		intent, err := event.Intent()
		if err != nil {
			return err
		}
		s.logger.WarnContext(ctx, "payment failed", "intent_id", intent.ID)
		return nil
	default:
		s.logger.DebugContext(ctx, "ignoring processor event", "type", event.Type)
		return nil
	}
}

func (s *Service) recordContribution(ctx context.Context, intent *processor.Intent) error {
	serviceID, err := domain.ParseServiceID(intent.Metadata["service_id"])
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "intent missing service metadata")
	}

	name := intent.Metadata["contributor_name"]
	contributorEmail := intent.Metadata["contributor_email"]
	if contributorEmail == "" {
		contributorEmail = intent.ReceiptEmail
	}
	if name == "" && contributorEmail != "" {
		name = email.FullName(contributorEmail)
	}

	now := s.now().UTC()
	contribution := &models.Contribution{
		ID:               domain.NewContributionID(),
		ServiceID:        serviceID,
		Amount:           intent.AmountMoney(),
		ContributorName:  name,
		ContributorEmail: contributorEmail,
		Status:           models.ContributionSucceeded,
		ProcessorIntent:  intent.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if charge := intent.LatestCharge; charge != nil && charge.BalanceTransaction != nil {
		contribution.Fee = money.Some(charge.BalanceTransaction.FeeMoney())
		availableOn := charge.BalanceTransaction.AvailableOnTime()
		contribution.AvailableOn = &availableOn
	}

	err = s.registries.RecordContribution(ctx, contribution)
	if errors.Is(err, store.ErrDuplicateIntent) {
		s.logger.InfoContext(ctx, "contribution already recorded", "intent_id", intent.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record contribution: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ContributionsRecorded.Inc()
	}
	s.notifyOwner(ctx, contribution)
	return nil
}

// notifyOwner is best effort. A broker outage must not fail the webhook, or
// the processor would retry an already-recorded contribution forever.
func (s *Service) notifyOwner(ctx context.Context, contribution *models.Contribution) {
	if s.notifier == nil {
		return
	}
	reg, err := s.registries.GetByServiceID(ctx, contribution.ServiceID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping owner notification", "error", err)
		return
	}
	err = s.notifier.Publish(ctx, notification.Notification{
		Kind:       notification.KindContributionReceived,
		OwnerID:    reg.OwnerID,
		RegistryID: reg.ID,
		Title:      "New contribution",
		Body:       contribution.Summary(),
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "owner notification failed", "error", err)
	}
}
