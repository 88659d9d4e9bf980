package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Ashutosh0212/postgenius/internal/httputil"
	"github.com/Ashutosh0212/postgenius/internal/logging"
)

// CurrentUserFunc extracts the authenticated user ID from the request context.
// Wired to the auth middleware's context getter; injected here so this
// package does not depend on the auth package.
type CurrentUserFunc func(ctx context.Context) (uuid.UUID, bool)

// Store is the persistence needed by the profile endpoints
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error)
}

// Handler contains HTTP handlers for the profile endpoints
type Handler struct {
	repo        Store
	currentUser CurrentUserFunc
}

func NewHandler(repo Store, currentUser CurrentUserFunc) *Handler {
	return &Handler{repo: repo, currentUser: currentUser}
}

// ProfileResponse is the user document returned by the profile endpoints
type ProfileResponse struct {
	*User
	FullName              string `json:"full_name"`
	AIGenerationRemaining int    `json:"ai_generation_remaining"`
	IsSubscriptionActive  bool   `json:"is_subscription_active"`
}

// StatsResponse is the usage snapshot returned by the stats endpoint
type StatsResponse struct {
	AIGenerationUsed      int    `json:"ai_generation_used"`
	AIGenerationLimit     int    `json:"ai_generation_limit"`
	AIGenerationRemaining int    `json:"ai_generation_remaining"`
	SubscriptionTier      string `json:"subscription_tier"`
	IsSubscriptionActive  bool   `json:"is_subscription_active"`
	IsVerified            bool   `json:"is_verified"`
	CreatedAt             string `json:"created_at"`
}

// GetProfile handles GET /auth/profile
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ProfileResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := h.currentUser(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
		return
	}

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to load profile", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, newProfileResponse(u), http.StatusOK)
}

// UpdateProfile handles PUT /auth/profile
// @Summary      Update own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ProfileUpdate true "Editable profile fields"
// @Success      200 {object} ProfileResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := h.currentUser(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
		return
	}

	var update ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("invalid profile update body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if fields := validateProfileUpdate(update); len(fields) > 0 {
		httputil.RespondValidationError(w, fields)
		return
	}

	u, err := h.repo.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update profile", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", userID)
	httputil.RespondJSON(w, newProfileResponse(u), http.StatusOK)
}

// GetStats handles GET /auth/stats
// @Summary      Get own usage statistics
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} StatsResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := h.currentUser(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
		return
	}

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to load stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load stats", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	stats := StatsResponse{
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if u.Profile != nil {
		stats.AIGenerationUsed = u.Profile.AIGenerationUsed
		stats.AIGenerationLimit = u.Profile.AIGenerationLimit
		stats.AIGenerationRemaining = u.Profile.AIGenerationRemaining()
		stats.SubscriptionTier = u.Profile.SubscriptionTier
		stats.IsSubscriptionActive = u.Profile.IsSubscriptionActive()
	}

	httputil.RespondJSON(w, stats, http.StatusOK)
}

func newProfileResponse(u *User) ProfileResponse {
	resp := ProfileResponse{
		User:     u,
		FullName: u.FullName(),
	}
	if u.Profile != nil {
		resp.AIGenerationRemaining = u.Profile.AIGenerationRemaining()
		resp.IsSubscriptionActive = u.Profile.IsSubscriptionActive()
	}
	return resp
}
