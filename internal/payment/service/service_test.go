package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pampermomma/internal/notification"
	"pampermomma/internal/payment/processor"
	"pampermomma/internal/registry/models"
	"pampermomma/internal/registry/store"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

type fakeProcessor struct {
	createCalls  int
	lastRequest  processor.CreateIntentRequest
	createResult *processor.Intent
	createErr    error
}

func (f *fakeProcessor) CreateIntent(_ context.Context, req processor.CreateIntentRequest) (*processor.Intent, error) {
	f.createCalls++
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeProcessor) GetIntent(context.Context, string) (*processor.Intent, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "not stubbed")
}

func (f *fakeProcessor) CreateTransfer(context.Context, processor.TransferRequest) (*processor.Transfer, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "not stubbed")
}

func (f *fakeProcessor) GetAccount(context.Context, string) (*processor.Account, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "not stubbed")
}

func (f *fakeProcessor) GetBalance(context.Context, string) (*processor.Balance, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "not stubbed")
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, nil))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func seedService(t *testing.T, registries *store.MemoryStore, costPerHour string, hours int64) *models.Registry {
	t.Helper()
	now := time.Now().UTC()
	reg := &models.Registry{
		ID:          domain.NewRegistryID(),
		OwnerID:     domain.NewUserID(),
		Name:        "Baby Ito",
		ShareableID: "baby-ito-2026",
		CreatedAt:   now,
		UpdatedAt:   now,
		Services: []models.Service{
			{
				ID:          domain.NewServiceID(),
				Name:        "lactation consult",
				Hours:       hours,
				CostPerHour: money.MustParse(costPerHour),
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
	}
	reg.Services[0].RegistryID = reg.ID
	require.NoError(t, registries.Create(context.Background(), reg))
	return reg
}

func TestCreateIntent(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 10)
	proc := &fakeProcessor{createResult: &processor.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}}
	svc := New(registries, proc, nil, testLogger(t))

	result, err := svc.CreateIntent(context.Background(), CreateIntentParams{
		ServiceID:        reg.Services[0].ID,
		Amount:           money.MustParse("25.00"),
		ContributorName:  "Maya",
		ContributorEmail: "maya@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)
	assert.Equal(t, reg.Services[0].ID.String(), proc.lastRequest.Metadata["service_id"])
	assert.Equal(t, reg.ID.String(), proc.lastRequest.Metadata["registry_id"])
	assert.Equal(t, "25.00", proc.lastRequest.Amount.String())
}

func TestCreateIntent_BelowProcessorFloor(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 10)
	proc := &fakeProcessor{}
	svc := New(registries, proc, nil, testLogger(t))

	_, err := svc.CreateIntent(context.Background(), CreateIntentParams{
		ServiceID: reg.Services[0].ID,
		Amount:    money.MustParse("0.25"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Zero(t, proc.createCalls)
}

func TestCreateIntent_UnknownService(t *testing.T) {
	registries := store.NewMemory()
	seedService(t, registries, "20.00", 10)
	svc := New(registries, &fakeProcessor{}, nil, testLogger(t))

	_, err := svc.CreateIntent(context.Background(), CreateIntentParams{
		ServiceID: domain.NewServiceID(),
		Amount:    money.MustParse("25.00"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCreateIntent_CompletedService(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 1)
	fund := &models.Contribution{
		ID:              domain.NewContributionID(),
		ServiceID:       reg.Services[0].ID,
		Amount:          money.MustParse("20.00"),
		Status:          models.ContributionSucceeded,
		ProcessorIntent: "pi_full",
	}
	require.NoError(t, registries.RecordContribution(context.Background(), fund))

	proc := &fakeProcessor{}
	svc := New(registries, proc, nil, testLogger(t))

	_, err := svc.CreateIntent(context.Background(), CreateIntentParams{
		ServiceID: reg.Services[0].ID,
		Amount:    money.MustParse("10.00"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Zero(t, proc.createCalls)
}

func TestCreateIntent_ExceedsRemaining(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 10)
	svc := New(registries, &fakeProcessor{}, nil, testLogger(t))

	_, err := svc.CreateIntent(context.Background(), CreateIntentParams{
		ServiceID: reg.Services[0].ID,
		Amount:    money.MustParse("250.00"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func succeededEvent(t *testing.T, intent *processor.Intent) *processor.Event {
	t.Helper()
	return &processor.Event{
		Type: "payment_intent.succeeded",
		Data: eventData(t, intent),
	}
}

func eventData(t *testing.T, intent *processor.Intent) processor.EventData {
	t.Helper()
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return processor.EventData{Object: raw}
}

func TestHandleEvent_RecordsContribution(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 10)
	notifier := notification.NewMemory()
	svc := New(registries, &fakeProcessor{}, notifier, testLogger(t))

	intent := &processor.Intent{
		ID:     "pi_hook_1",
		Amount: 3000,
		Status: "succeeded",
		Metadata: map[string]string{
			"service_id":        reg.Services[0].ID.String(),
			"contributor_email": "jordan.lee@example.com",
		},
		LatestCharge: &processor.Charge{
			BalanceTransaction: &processor.BalanceTransaction{Fee: 117, AvailableOn: 1770000000},
		},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), succeededEvent(t, intent)))

	got, err := registries.FindContributionByIntent(context.Background(), "pi_hook_1")
	require.NoError(t, err)
	assert.Equal(t, "30.00", got.Amount.String())
	assert.Equal(t, models.ContributionSucceeded, got.Status)
	// Name falls back to the email local part when none was given.
	assert.Equal(t, "Jordan Lee", got.ContributorName)
	require.True(t, got.Fee.Valid)
	assert.Equal(t, "1.17", got.Fee.Amount.String())

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.KindContributionReceived, sent[0].Kind)
	assert.Equal(t, reg.OwnerID, sent[0].OwnerID)
}

func TestHandleEvent_ReplayIsNoOp(t *testing.T) {
	registries := store.NewMemory()
	reg := seedService(t, registries, "20.00", 10)
	notifier := notification.NewMemory()
	svc := New(registries, &fakeProcessor{}, notifier, testLogger(t))

	intent := &processor.Intent{
		ID:       "pi_hook_dup",
		Amount:   2000,
		Metadata: map[string]string{"service_id": reg.Services[0].ID.String()},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), succeededEvent(t, intent)))
	require.NoError(t, svc.HandleEvent(context.Background(), succeededEvent(t, intent)))

	got, err := registries.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Services[0].Contributions, 1)
	assert.Len(t, notifier.Sent(), 1)
}

func TestHandleEvent_IgnoresUnknownTypes(t *testing.T) {
	registries := store.NewMemory()
	svc := New(registries, &fakeProcessor{}, nil, testLogger(t))

	err := svc.HandleEvent(context.Background(), &processor.Event{Type: "charge.refunded"})
	assert.NoError(t, err)
}
