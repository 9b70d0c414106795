// Package service implements the two-step withdrawal flow: initiate issues a
// one-time code bound to the caller's device, finalize verifies both and
// moves the money.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pampermomma/internal/notification"
	"pampermomma/internal/payment/processor"
	"pampermomma/internal/platform/metrics"
	registrymodels "pampermomma/internal/registry/models"
	registrystore "pampermomma/internal/registry/store"
	"pampermomma/internal/withdrawal/models"
	"pampermomma/internal/withdrawal/store"
	"pampermomma/pkg/devicedesc"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

const (
	codeLength        = 6
	deviceTokenBytes  = 32
	defaultTTL        = 10 * time.Minute
	defaultMaxAttempt = 5
)

// Mailer delivers the one-time code to the registry owner.
type Mailer interface {
	SendWithdrawalCode(ctx context.Context, to, code, deviceSummary string) error
}

// Service runs withdrawal verification and settlement.
type Service struct {
	registries  registrystore.Store
	otps        store.OTPStore
	processor   processor.Client
	mailer      Mailer
	notifier    notification.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOTPPolicy overrides the code TTL and attempt budget.
func WithOTPPolicy(ttl time.Duration, maxAttempts int) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

// WithMetrics attaches counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier attaches the owner notification publisher.
func WithNotifier(n notification.Publisher) Option {
	return func(s *Service) { s.notifier = n }
}

// New creates a withdrawal Service.
func New(registries registrystore.Store, otps store.OTPStore, client processor.Client, mailer Mailer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registries:  registries,
		otps:        otps,
		processor:   client,
		mailer:      mailer,
		logger:      logger,
		ttl:         defaultTTL,
		maxAttempts: defaultMaxAttempt,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateParams starts a withdrawal verification.
type InitiateParams struct {
	OwnerID    domain.UserID
	RegistryID domain.RegistryID
	Amount     money.Amount
	OwnerEmail string
	UserAgent  string
}

// Initiate checks the amount against the authoritative balance, then issues
// a one-time code by email and a device token to the caller. The token comes
// back on finalize so the code only works from the browser that asked for it.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (string, error) {
	reg, err := s.ownedRegistry(ctx, params.OwnerID, params.RegistryID)
	if err != nil {
		return "", err
	}
	if err := s.checkAmount(reg, params.Amount); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	deviceIdentity, err := generateDeviceToken()
	if err != nil {
		return "", fmt.Errorf("generate device token: %w", err)
	}
	deviceHash, err := bcrypt.GenerateFromPassword([]byte(deviceIdentity), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash device token: %w", err)
	}

	now := s.now().UTC()
	request := &models.OTPRequest{
		RegistryID: params.RegistryID,
		OwnerID:    params.OwnerID,
		Code:       code,
		DeviceHash: deviceHash,
		Amount:     params.Amount,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.otps.Save(ctx, request); err != nil {
		return "", fmt.Errorf("save otp request: %w", err)
	}

	deviceSummary := devicedesc.Describe(params.UserAgent)
	if err := s.mailer.SendWithdrawalCode(ctx, params.OwnerEmail, code, deviceSummary); err != nil {
		// Without the email the code is unreachable, so surface the failure.
		_ = s.otps.Delete(ctx, params.RegistryID)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "could not send verification code")
	}

	if s.metrics != nil {
		s.metrics.WithdrawalsInitiated.Inc()
	}
	s.logger.InfoContext(ctx, "withdrawal verification issued",
		"registry_id", params.RegistryID,
		"amount", params.Amount,
		"device", deviceSummary,
	)
	return deviceIdentity, nil
}

// FinalizeParams completes a withdrawal.
type FinalizeParams struct {
	OwnerID        domain.UserID
	RegistryID     domain.RegistryID
	Amount         money.Amount
	Code           string
	DeviceIdentity string
}

// Finalize verifies the code and device, re-checks the balance, and creates
// the processor transfer. The pending request is consumed on success.
func (s *Service) Finalize(ctx context.Context, params FinalizeParams) (*registrymodels.Withdrawal, error) {
	reg, err := s.ownedRegistry(ctx, params.OwnerID, params.RegistryID)
	if err != nil {
		return nil, err
	}

	request, err := s.otps.Get(ctx, params.RegistryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "verification required")
		}
		return nil, fmt.Errorf("load otp request: %w", err)
	}
	if request.Expired(s.now()) || request.OwnerID != params.OwnerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "verification expired")
	}
	if request.Attempts >= s.maxAttempts {
		_ = s.otps.Delete(ctx, params.RegistryID)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "too many attempts, request a new code")
	}
	codeOK := subtle.ConstantTimeCompare([]byte(request.Code), []byte(params.Code)) == 1
	if !codeOK || !request.MatchesDevice(params.DeviceIdentity) {
		if err := s.otps.RecordFailure(ctx, params.RegistryID); err != nil {
			s.logger.WarnContext(ctx, "could not record otp failure", "error", err.Error())
		}
		if s.metrics != nil {
			s.metrics.OTPVerifyFailures.Inc()
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification code")
	}

	// The balance may have moved since initiate.
	if err := s.checkAmount(reg, params.Amount); err != nil {
		return nil, err
	}

	if !reg.PayoutsEnabled || reg.PayoutAccount == "" {
		return nil, dErrors.New(dErrors.CodeConflict, "payout account is not set up")
	}
	account, err := s.processor.GetAccount(ctx, reg.PayoutAccount)
	if err != nil {
		return nil, err
	}
	if !account.PayoutsEnabled {
		return nil, dErrors.New(dErrors.CodeConflict, "payout account is not ready to receive funds")
	}

	transfer, err := s.processor.CreateTransfer(ctx, processor.TransferRequest{
		Amount:      params.Amount,
		Destination: reg.PayoutAccount,
		Description: fmt.Sprintf("withdrawal from %s", reg.Name),
	})
	if err != nil {
		return nil, err
	}

	withdrawal := &registrymodels.Withdrawal{
		ID:         domain.NewWithdrawalID(),
		RegistryID: params.RegistryID,
		Amount:     params.Amount,
		Status:     registrymodels.WithdrawalPending,
		TransferID: transfer.ID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.registries.AddWithdrawal(ctx, withdrawal); err != nil {
		// The transfer went through; the record must follow.
		return nil, fmt.Errorf("record withdrawal %s: %w", transfer.ID, err)
	}

	_ = s.otps.Delete(ctx, params.RegistryID)
	if s.metrics != nil {
		s.metrics.WithdrawalsCompleted.Inc()
	}
	s.notifyOwner(ctx, reg, withdrawal)
	s.logger.InfoContext(ctx, "withdrawal created",
		"registry_id", params.RegistryID,
		"withdrawal_id", withdrawal.ID,
		"transfer_id", transfer.ID,
		"amount", params.Amount,
	)
	return withdrawal, nil
}

func (s *Service) ownedRegistry(ctx context.Context, ownerID domain.UserID, registryID domain.RegistryID) (*registrymodels.Registry, error) {
	reg, err := s.registries.GetByID(ctx, registryID)
	if err != nil {
		if errors.Is(err, registrystore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registry not found")
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if reg.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "registry belongs to another user")
	}
	return reg, nil
}

func (s *Service) checkAmount(reg *registrymodels.Registry, amount money.Amount) error {
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	available := reg.AvailableBalance(s.now())
	if amount.GreaterThan(available) {
		return dErrors.Newf(dErrors.CodeValidation, "amount exceeds available balance of $%s", available)
	}
	return nil
}

func (s *Service) notifyOwner(ctx context.Context, reg *registrymodels.Registry, withdrawal *registrymodels.Withdrawal) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notification.Notification{
		Kind:       notification.KindWithdrawalCompleted,
		OwnerID:    reg.OwnerID,
		RegistryID: reg.ID,
		Title:      "Withdrawal on its way",
		Body:       fmt.Sprintf("$%s is being transferred to your payout account", withdrawal.Amount),
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "withdrawal notification failed", "error", err.Error())
	}
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}

func generateDeviceToken() (string, error) {
	buf := make([]byte, deviceTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
