package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "pampermomma/internal/jwt_token"
	"pampermomma/internal/notification"
	paymenthandler "pampermomma/internal/payment/handler"
	paymentservice "pampermomma/internal/payment/service"
	registryhandler "pampermomma/internal/registry/handler"
	registryservice "pampermomma/internal/registry/service"
	registrystore "pampermomma/internal/registry/store"
	withdrawalhandler "pampermomma/internal/withdrawal/handler"
	withdrawalservice "pampermomma/internal/withdrawal/service"
	withdrawalstore "pampermomma/internal/withdrawal/store"
	"pampermomma/pkg/domain"
)

// buildRouter assembles the router exactly as run() does, backed by
// memory stores.
func buildRouter(t *testing.T) chi.Router {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	registries := registrystore.NewMemory()
	validator := jwttoken.NewMiddlewareAdapter(jwttoken.NewJWTService("test-key", "pampermomma", "pampermomma-api"))

	registrySvc := registryservice.New(registries, nil, log)
	paymentSvc := paymentservice.New(registries, nil, notification.NewMemory(), log)
	withdrawalSvc := withdrawalservice.New(registries, withdrawalstore.NewMemory(), nil, withdrawalservice.NewMemoryMailer(), log)

	return newRouter(
		registryhandler.New(registrySvc, log, validator),
		paymenthandler.New(paymentSvc, log, "whsec_test", "pk_test_123", "https://pampermomma.test"),
		withdrawalhandler.New(withdrawalSvc, log, validator),
	)
}

// All three handlers register on the one shared router; a second
// handler's registration must not collide with the first's.
func TestAllHandlersShareOneRouter(t *testing.T) {
	router := buildRouter(t)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}
	post := func(path string, body []byte) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)

	// Registry routes answer (not-found body, not an unrouted 404 page).
	rec := get("/registries/public/unknown-share-id")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	// Owner routes demand auth.
	registryID := domain.NewRegistryID().String()
	assert.Equal(t, http.StatusUnauthorized, get("/registries/r/"+registryID).Code)
	assert.Equal(t, http.StatusUnauthorized, post("/registries/r/"+registryID+"/withdraw", []byte(`{}`)).Code)

	// Payment routes reach their handler: a garbage body is a 400, a
	// missing webhook signature a 401.
	assert.Equal(t, http.StatusBadRequest, post("/registries/payments/create-payment-intent", []byte("{")).Code)
	assert.Equal(t, http.StatusUnauthorized, post("/registries/payments/webhook", []byte(`{}`)).Code)
}

// The documented endpoint forms carry trailing slashes; StripSlashes keeps
// them routable.
func TestTrailingSlashFormsRoute(t *testing.T) {
	router := buildRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registries/payments/create-payment-intent/", bytes.NewReader([]byte("{"))))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registries/shared/not-a-uuid/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
