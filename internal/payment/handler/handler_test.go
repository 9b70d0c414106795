package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pampermomma/internal/payment/processor"
	paymentservice "pampermomma/internal/payment/service"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
)

type fakeService struct {
	createParams *paymentservice.CreateIntentParams
	createResult *paymentservice.IntentResult
	createErr    error
	events       []*processor.Event
	eventErr     error
}

func (f *fakeService) CreateIntent(_ context.Context, params paymentservice.CreateIntentParams) (*paymentservice.IntentResult, error) {
	f.createParams = &params
	return f.createResult, f.createErr
}

func (f *fakeService) HandleEvent(_ context.Context, event *processor.Event) error {
	f.events = append(f.events, event)
	return f.eventErr
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

func setupRouter(t *testing.T, svc Service) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	New(svc, testLogger(t), "whsec_test", "pk_test_123", "https://pampermomma.test/").Register(r)
	return r
}

func TestCreateIntentEndpoint(t *testing.T) {
	serviceID := domain.NewServiceID()
	svc := &fakeService{createResult: &paymentservice.IntentResult{
		IntentID:     "pi_1",
		ClientSecret: "pi_1_secret",
	}}
	router := setupRouter(t, svc)

	body, _ := json.Marshal(map[string]any{
		"service_id":        serviceID.String(),
		"amount":            "25.00",
		"contributor_name":  "Maya",
		"contributor_email": "maya@example.com",
	})
	req := httptest.NewRequest(http.MethodPost, "/registries/payments/create-payment-intent", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1_secret", resp["clientSecret"])
	assert.Equal(t, "pk_test_123", resp["publishableKey"])
	assert.Equal(t, "https://pampermomma.test/contribute/return", resp["returnUrl"])

	require.NotNil(t, svc.createParams)
	assert.Equal(t, serviceID, svc.createParams.ServiceID)
	assert.Equal(t, "25.00", svc.createParams.Amount.String())
}

func TestCreateIntentEndpoint_Validation(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"bad service id", map[string]any{"service_id": "nope", "amount": "25.00"}},
		{"missing amount", map[string]any{"service_id": domain.NewServiceID().String()}},
		{"unparsable amount", map[string]any{"service_id": domain.NewServiceID().String(), "amount": "lots"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			router := setupRouter(t, svc)

			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/registries/payments/create-payment-intent", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.createParams)
		})
	}
}

func TestCreateIntentEndpoint_ConflictPassesThrough(t *testing.T) {
	svc := &fakeService{createErr: dErrors.New(dErrors.CodeConflict, "service is not accepting contributions")}
	router := setupRouter(t, svc)

	body, _ := json.Marshal(map[string]any{
		"service_id": domain.NewServiceID().String(),
		"amount":     "25.00",
	})
	req := httptest.NewRequest(http.MethodPost, "/registries/payments/create-payment-intent", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWebhook(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/registries/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", processor.SignPayload(payload, "whsec_test", time.Now()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "payment_intent.succeeded", svc.events[0].Type)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/registries/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", processor.SignPayload(payload, "whsec_wrong", time.Now()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.events)
}

func TestWebhook_ProcessingFailure(t *testing.T) {
	svc := &fakeService{eventErr: dErrors.New(dErrors.CodeInternal, "boom")}
	router := setupRouter(t, svc)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/registries/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", processor.SignPayload(payload, "whsec_test", time.Now()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
