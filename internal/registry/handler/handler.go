// Package handler exposes the registry snapshot endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pampermomma/internal/platform/middleware"
	"pampermomma/internal/registry/models"
	"pampermomma/internal/transport/http/shared"
	"pampermomma/pkg/domain"
	dErrors "pampermomma/pkg/domain-errors"
)

// Service defines the registry reads the handler needs.
type Service interface {
	OwnerSnapshot(ctx context.Context, ownerID domain.UserID, registryID domain.RegistryID) (*models.RegistrySnapshot, error)
	SharedSnapshot(ctx context.Context, viewer domain.UserID, registryID domain.RegistryID) (*models.RegistrySnapshot, error)
	PublicSnapshot(ctx context.Context, shareableID string) (*models.RegistrySnapshot, error)
}

// Handler handles registry endpoints.
type Handler struct {
	registries   Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New creates a registry Handler.
func New(registries Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		registries:   registries,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registry routes with the chi router. The owner view
// requires auth; the shared and public views do not.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(base chi.Router) {
		base.Use(middleware.Recovery(h.logger))
		base.Use(middleware.RequestID)
		base.Use(middleware.Logger(h.logger))
		base.Use(middleware.Timeout(30 * time.Second))

		base.Group(func(owner chi.Router) {
			owner.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			owner.Get("/registries/r/{registryID}", h.handleOwnerView)
		})
		base.Get("/registries/shared/{registryID}", h.handleSharedView)
		base.Get("/registries/public/{shareableID}", h.handlePublicView)
	})
}

func (h *Handler) handleOwnerView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := domain.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "user id missing despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid registry id"))
		return
	}

	snapshot, err := h.registries.OwnerSnapshot(ctx, ownerID, registryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleSharedView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid registry id"))
		return
	}

	// Viewer identity is optional here; a signed-in visitor sees which
	// contributions are theirs.
	var viewer domain.UserID
	if claims, err := h.jwtValidator.ValidateToken(bearerToken(r)); err == nil {
		viewer, _ = domain.ParseUserID(claims.UserID)
	}

	snapshot, err := h.registries.SharedSnapshot(ctx, viewer, registryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handlePublicView(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.registries.PublicSnapshot(r.Context(), chi.URLParam(r, "shareableID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
