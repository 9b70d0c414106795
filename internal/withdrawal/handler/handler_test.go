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

	"pampermomma/internal/platform/middleware"
	"pampermomma/internal/registry/models"
	withdrawalservice "pampermomma/internal/withdrawal/service"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

type fakeValidator struct {
	userID string
}

func (f *fakeValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.JWTClaims{UserID: f.userID}, nil
}

type fakeService struct {
	initiateParams *withdrawalservice.InitiateParams
	initiateResult string
	initiateErr    error
	finalizeParams *withdrawalservice.FinalizeParams
	finalizeResult *models.Withdrawal
	finalizeErr    error
}

func (f *fakeService) Initiate(_ context.Context, params withdrawalservice.InitiateParams) (string, error) {
	f.initiateParams = &params
	return f.initiateResult, f.initiateErr
}

func (f *fakeService) Finalize(_ context.Context, params withdrawalservice.FinalizeParams) (*models.Withdrawal, error) {
	f.finalizeParams = &params
	return f.finalizeResult, f.finalizeErr
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

func setupRouter(t *testing.T, svc Service, userID string) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	New(svc, testLogger(t), &fakeValidator{userID: userID}).Register(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInitiate(t *testing.T) {
	ownerID := domain.NewUserID()
	registryID := domain.NewRegistryID()
	svc := &fakeService{initiateResult: "device-token-1"}
	router := setupRouter(t, svc, ownerID.String())

	rec := postJSON(t, router,
		"/registries/r/"+registryID.String()+"/initiate-withdrawal-verification",
		"good-token",
		map[string]any{"amount": "25.00", "email": "owner@example.com"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "device-token-1", resp["device_identity"])

	require.NotNil(t, svc.initiateParams)
	assert.Equal(t, ownerID, svc.initiateParams.OwnerID)
	assert.Equal(t, registryID, svc.initiateParams.RegistryID)
	assert.Equal(t, "25.00", svc.initiateParams.Amount.String())
}

func TestInitiate_RequiresAuth(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc, domain.NewUserID().String())

	rec := postJSON(t, router,
		"/registries/r/"+domain.NewRegistryID().String()+"/initiate-withdrawal-verification",
		"bad-token",
		map[string]any{"amount": "25.00"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, svc.initiateParams)
}

func TestInitiate_MissingAmount(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc, domain.NewUserID().String())

	rec := postJSON(t, router,
		"/registries/r/"+domain.NewRegistryID().String()+"/initiate-withdrawal-verification",
		"good-token",
		map[string]any{"email": "owner@example.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.initiateParams)
}

func TestWithdraw(t *testing.T) {
	ownerID := domain.NewUserID()
	registryID := domain.NewRegistryID()
	svc := &fakeService{finalizeResult: &models.Withdrawal{
		ID:         domain.NewWithdrawalID(),
		RegistryID: registryID,
		Amount:     money.MustParse("25.00"),
		Status:     models.WithdrawalPending,
		CreatedAt:  time.Now().UTC(),
	}}
	router := setupRouter(t, svc, ownerID.String())

	rec := postJSON(t, router,
		"/registries/r/"+registryID.String()+"/withdraw",
		"good-token",
		map[string]any{"amount": "25.00", "otp": "123456", "device_identity": "device-token-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "25.00", resp["amount"])

	require.NotNil(t, svc.finalizeParams)
	assert.Equal(t, "123456", svc.finalizeParams.Code)
	assert.Equal(t, "device-token-1", svc.finalizeParams.DeviceIdentity)
}

func TestWithdraw_MissingOTP(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc, domain.NewUserID().String())

	rec := postJSON(t, router,
		"/registries/r/"+domain.NewRegistryID().String()+"/withdraw",
		"good-token",
		map[string]any{"amount": "25.00", "device_identity": "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.finalizeParams)
}

func TestWithdraw_ServiceErrorsMapToStatus(t *testing.T) {
	svc := &fakeService{finalizeErr: dErrors.New(dErrors.CodeUnauthorized, "invalid verification code")}
	router := setupRouter(t, svc, domain.NewUserID().String())

	rec := postJSON(t, router,
		"/registries/r/"+domain.NewRegistryID().String()+"/withdraw",
		"good-token",
		map[string]any{"amount": "25.00", "otp": "000000", "device_identity": "x"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid verification code", resp["error"])
}

func TestWithdraw_InvalidRegistryID(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(t, svc, domain.NewUserID().String())

	rec := postJSON(t, router,
		"/registries/r/not-a-uuid/withdraw",
		"good-token",
		map[string]any{"amount": "25.00", "otp": "123456", "device_identity": "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
