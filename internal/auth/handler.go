package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Ashutosh0212/postgenius/internal/httputil"
	"github.com/Ashutosh0212/postgenius/internal/logging"
	"github.com/Ashutosh0212/postgenius/internal/ratelimit"
	"github.com/Ashutosh0212/postgenius/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	rateLimiter     *ratelimit.Limiter
	logger          *logging.Logger
	isProduction    bool
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger, isProduction bool, accessDuration, refreshDuration time.Duration) *Handler {
	return &Handler{
		service:         service,
		rateLimiter:     rateLimiter,
		logger:          logger,
		isProduction:    isProduction,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number"`
	Timezone        string `json:"timezone"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// PasswordResetRequest represents the reset request body
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest represents the reset confirmation body
type PasswordResetConfirmRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// VerifyEmailRequest represents the email verification body
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ResendVerificationRequest represents the resend verification body
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// AuthResponse pairs the account with its session tokens
type AuthResponse struct {
	Message string      `json:"message"`
	User    *user.User  `json:"user"`
	Tokens  *AuthTokens `json:"tokens,omitempty"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account with a free-tier profile. A verification email is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration fields"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email or username taken"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipLimited(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	newUser, tokens, err := h.service.Register(r.Context(), RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PhoneNumber:     req.PhoneNumber,
		Timezone:        req.Timezone,
	})
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondValidationError(w, ve.Fields)
			return
		}
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
			respondError(w, err.Error(), httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, user.ErrDuplicateUsername) {
			logger.Warn("registration failed: username taken")
			respondError(w, err.Error(), httputil.CodeUsernameTaken, http.StatusConflict)
			return
		}
		logger.Error("registration failed: internal error", "error", err.Error())
		respondError(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	respondJSON(w, AuthResponse{
		Message: "Registration successful. Please check your email to verify your account.",
		User:    newUser,
		Tokens:  tokens,
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate and receive access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Account disabled"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipLimited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	loggedInUser, tokens, err := h.service.Login(r.Context(), LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrAccountDisabled) {
			logger.Warn("login failed: account disabled")
			respondError(w, "user account is disabled", httputil.CodeAccountDisabled, http.StatusForbidden)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully", "user_id", loggedInUser.ID)

	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction, h.accessDuration, h.refreshDuration)
		respondJSON(w, AuthResponse{Message: "Login successful", User: loggedInUser}, http.StatusOK)
		return
	}

	respondJSON(w, AuthResponse{Message: "Login successful", User: loggedInUser, Tokens: tokens}, http.StatusOK)
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} AuthTokens
// @Failure      401 {object} httputil.ErrorResponse "Invalid, expired, or revoked token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := extractRefreshToken(r)
	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			logger.Warn("token refresh failed: invalid or expired token", "error", err.Error())
			respondError(w, "invalid or expired refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed: internal error", "error", err.Error())
		respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("access token refreshed successfully")

	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction, h.accessDuration, h.refreshDuration)
		respondJSON(w, map[string]string{"message": "token refreshed successfully"}, http.StatusOK)
		return
	}

	respondJSON(w, tokens, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the refresh token and clear auth cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid token"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := extractRefreshToken(r)
	if refreshToken == "" {
		respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			logger.Warn("logout failed: invalid token")
			respondError(w, "invalid token", httputil.CodeInvalidToken, http.StatusBadRequest)
			return
		}
		logger.Error("logout failed: internal error", "error", err.Error())
		respondError(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	ClearAuthCookies(w)

	logger.Info("user logged out successfully")
	respondJSON(w, map[string]string{"message": "Logout successful"}, http.StatusOK)
}

// ChangePassword handles password rotation for an authenticated user
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Old and new passwords"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			logger.Warn("password change failed: validation error")
			httputil.RespondValidationError(w, ve.Fields)
			return
		}
		logger.Error("password change failed: internal error", "error", err.Error())
		respondError(w, "failed to change password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password changed successfully", "user_id", userID)
	respondJSON(w, map[string]string{"message": "Password changed successfully"}, http.StatusOK)
}

// RequestPasswordReset handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link to the given email address
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body PasswordResetRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Unknown email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/password-reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password reset request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		respondError(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("password reset requested for unknown email")
			respondError(w, "No user found with this email address.", httputil.CodeUserNotFound, http.StatusBadRequest)
			return
		}
		logger.Error("password reset request failed: internal error", "error", err.Error())
		respondError(w, "failed to request password reset", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	respondJSON(w, map[string]string{"message": "Password reset email sent successfully"}, http.StatusOK)
}

// ConfirmPasswordReset handles password reset confirmation
// @Summary      Confirm password reset
// @Description  Consume a reset token and set the new password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body PasswordResetConfirmRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired, or already used token"
// @Router       /auth/password-reset-confirm [post]
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset confirmation body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ConfirmPasswordReset(r.Context(), strings.TrimSpace(req.Token), req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			logger.Warn("password reset failed: validation error")
			httputil.RespondValidationError(w, ve.Fields)
			return
		}
		if errors.Is(err, ErrTokenExpired) {
			logger.Warn("password reset failed: token expired")
			respondError(w, "Reset token has expired.", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrTokenAlreadyUsed) {
			logger.Warn("password reset failed: token already used")
			respondError(w, "Reset token has already been used.", httputil.CodeTokenAlreadyUsed, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrTokenNotFound) {
			logger.Warn("password reset failed: invalid token")
			respondError(w, "Invalid or expired reset token.", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err.Error())
		respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password reset successfully")
	respondJSON(w, map[string]string{"message": "Password reset successfully"}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Consume a verification token and mark the account verified
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "Verification token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired, or already used token"
// @Router       /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify email body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		respondError(w, "verification token required", httputil.CodeTokenRequired, http.StatusBadRequest)
		return
	}

	verifiedUser, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			logger.Warn("email verification failed: token expired")
			respondError(w, "Verification token has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrTokenAlreadyUsed) {
			logger.Warn("email verification failed: token already used")
			respondError(w, "This verification link was already used.", httputil.CodeAlreadyVerified, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrTokenNotFound) {
			logger.Warn("email verification failed: invalid token")
			respondError(w, "Invalid verification token.", httputil.CodeVerificationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		respondError(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("email verified successfully", "user_id", verifiedUser.ID)
	respondJSON(w, map[string]string{"message": "Email verified successfully"}, http.StatusOK)
}

// ResendVerificationEmail handles resend requests
// @Summary      Resend verification email
// @Description  Send a fresh verification token. Always returns success to prevent enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} map[string]string
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resend verification body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	_ = h.service.ResendVerification(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If an unverified account exists with that email, a new verification link has been sent.",
	}, http.StatusOK)
}

// ipLimited applies the per-IP rate limit for the given purpose and writes
// the 429 itself when the limit is hit. Limiter errors fail open.
func (h *Handler) ipLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// extractRefreshToken reads the refresh token from the JSON body, falling
// back to the refresh token cookie for browser clients
func extractRefreshToken(r *http.Request) string {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return strings.TrimSpace(req.RefreshToken)
	}
	if cookieToken, err := GetRefreshTokenFromCookie(r); err == nil {
		return strings.TrimSpace(cookieToken)
	}
	return ""
}

// getClientIP returns the client address, preferring the forwarded header
// set by proxies
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
