// Package handler exposes the payment endpoints: intent creation for the
// contribution form, and the processor webhook.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pampermomma/internal/payment/processor"
	paymentservice "pampermomma/internal/payment/service"
	"pampermomma/internal/platform/middleware"
	"pampermomma/internal/transport/http/shared"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

// maxWebhookBody bounds how much of a webhook payload we read.
const maxWebhookBody = 1 << 20

// Service defines the payment operations the handler needs.
type Service interface {
	CreateIntent(ctx context.Context, params paymentservice.CreateIntentParams) (*paymentservice.IntentResult, error)
	HandleEvent(ctx context.Context, event *processor.Event) error
}

// Handler handles payment endpoints.
type Handler struct {
	payments       Service
	logger         *slog.Logger
	webhookSecret  string
	publishableKey string
	returnURL      string
	now            func() time.Time
}

// New creates a payment Handler. frontendBaseURL is the application origin;
// intent responses carry the confirmation return URL derived from it so the
// contribution flow does not hardcode the frontend's routes.
func New(payments Service, logger *slog.Logger, webhookSecret, publishableKey, frontendBaseURL string) *Handler {
	return &Handler{
		payments:       payments,
		logger:         logger,
		webhookSecret:  webhookSecret,
		publishableKey: publishableKey,
		returnURL:      strings.TrimSuffix(frontendBaseURL, "/") + "/contribute/return",
		now:            time.Now,
	}
}

// Register registers the payment routes with the chi router. Both endpoints
// are unauthenticated: contributors are guests, and the webhook authenticates
// by signature.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(payments chi.Router) {
		payments.Use(middleware.Recovery(h.logger))
		payments.Use(middleware.RequestID)
		payments.Use(middleware.Logger(h.logger))
		payments.Use(middleware.Timeout(30 * time.Second))
		payments.Post("/registries/payments/create-payment-intent", h.handleCreateIntent)
		payments.Post("/registries/payments/webhook", h.handleWebhook)
	})
}

type createIntentRequest struct {
	ServiceID        string         `json:"service_id"`
	Amount           money.Optional `json:"amount"`
	ContributorName  string         `json:"contributor_name"`
	ContributorEmail string         `json:"contributor_email"`
}

type createIntentResponse struct {
	ClientSecret   string `json:"clientSecret"`
	PublishableKey string `json:"publishableKey"`
	IntentID       string `json:"intent_id"`
	ReturnURL      string `json:"returnUrl"`
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	serviceID, err := domain.ParseServiceID(req.ServiceID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid service id"))
		return
	}
	if !req.Amount.Valid {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount is required"))
		return
	}

	result, err := h.payments.CreateIntent(ctx, paymentservice.CreateIntentParams{
		ServiceID:        serviceID,
		Amount:           req.Amount.Amount,
		ContributorName:  req.ContributorName,
		ContributorEmail: req.ContributorEmail,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create intent rejected",
			"request_id", requestID,
			"service_id", req.ServiceID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, createIntentResponse{
		ClientSecret:   result.ClientSecret,
		PublishableKey: h.publishableKey,
		IntentID:       result.IntentID,
		ReturnURL:      h.returnURL,
	})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable payload"))
		return
	}

	event, err := processor.ParseEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret, h.now())
	if err != nil {
		h.logger.WarnContext(ctx, "webhook rejected", "error", err.Error())
		shared.WriteError(w, err)
		return
	}

	if err := h.payments.HandleEvent(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "webhook processing failed",
			"event_id", event.ID,
			"type", event.Type,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "event processing failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
