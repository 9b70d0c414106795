// Package handler exposes the two withdrawal endpoints: verification
// initiation and finalization. Both are owner-only.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pampermomma/internal/platform/middleware"
	"pampermomma/internal/registry/models"
	"pampermomma/internal/transport/http/shared"
	withdrawalservice "pampermomma/internal/withdrawal/service"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

// Service defines the withdrawal operations the handler needs.
type Service interface {
	Initiate(ctx context.Context, params withdrawalservice.InitiateParams) (string, error)
	Finalize(ctx context.Context, params withdrawalservice.FinalizeParams) (*models.Withdrawal, error)
}

// Handler handles withdrawal endpoints.
type Handler struct {
	withdrawals  Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New creates a withdrawal Handler.
func New(withdrawals Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		withdrawals:  withdrawals,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the withdrawal routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(owner chi.Router) {
		owner.Use(middleware.Recovery(h.logger))
		owner.Use(middleware.RequestID)
		owner.Use(middleware.Logger(h.logger))
		owner.Use(middleware.Timeout(30 * time.Second))
		owner.Use(middleware.ContentTypeJSON)
		owner.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		owner.Post("/registries/r/{registryID}/initiate-withdrawal-verification", h.handleInitiate)
		owner.Post("/registries/r/{registryID}/withdraw", h.handleWithdraw)
	})
}

type initiateRequest struct {
	Amount money.Optional `json:"amount"`
	Email  string         `json:"email"`
}

type initiateResponse struct {
	DeviceIdentity string `json:"device_identity"`
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, registryID, ok := h.authContext(w, r)
	if !ok {
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !req.Amount.Valid {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount is required"))
		return
	}

	deviceIdentity, err := h.withdrawals.Initiate(ctx, withdrawalservice.InitiateParams{
		OwnerID:    ownerID,
		RegistryID: registryID,
		Amount:     req.Amount.Amount,
		OwnerEmail: req.Email,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "withdrawal initiation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"registry_id", registryID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, initiateResponse{DeviceIdentity: deviceIdentity})
}

type withdrawRequest struct {
	Amount         money.Optional `json:"amount"`
	OTP            string         `json:"otp"`
	DeviceIdentity string         `json:"device_identity"`
}

type withdrawResponse struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, registryID, ok := h.authContext(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !req.Amount.Valid {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount is required"))
		return
	}
	if req.OTP == "" || req.DeviceIdentity == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "otp and device identity are required"))
		return
	}

	withdrawal, err := h.withdrawals.Finalize(ctx, withdrawalservice.FinalizeParams{
		OwnerID:        ownerID,
		RegistryID:     registryID,
		Amount:         req.Amount.Amount,
		Code:           req.OTP,
		DeviceIdentity: req.DeviceIdentity,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "withdrawal rejected",
			"request_id", middleware.GetRequestID(ctx),
			"registry_id", registryID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, withdrawResponse{
		ID:     withdrawal.ID.String(),
		Amount: withdrawal.Amount.String(),
		Status: string(withdrawal.Status),
	})
}

func (h *Handler) authContext(w http.ResponseWriter, r *http.Request) (domain.UserID, domain.RegistryID, bool) {
	ctx := r.Context()

	ownerID, err := domain.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "user id missing despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.UserID{}, domain.RegistryID{}, false
	}
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid registry id"))
		return domain.UserID{}, domain.RegistryID{}, false
	}
	return ownerID, registryID, true
}
