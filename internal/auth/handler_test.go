package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashutosh0212/postgenius/internal/httputil"
	"github.com/Ashutosh0212/postgenius/internal/logging"
	"github.com/Ashutosh0212/postgenius/internal/ratelimit"
)

type handlerFixture struct {
	*serviceFixture
	handler *Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	_, client := newTestRedis(t)
	f := newServiceFixture(t)

	handler := NewHandler(
		f.service,
		ratelimit.NewLimiter(client),
		logging.NewLogger(true),
		false, // isProduction
		15*time.Minute,
		7*24*time.Hour,
	)

	return &handlerFixture{serviceFixture: f, handler: handler}
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Type", "api")
	req.RemoteAddr = "203.0.113.7:51234"

	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "str0ngpass",
		PasswordConfirm: "str0ngpass",
		FirstName:       "Alice",
		LastName:        "Doe",
	}
}

func TestHandlerRegisterSuccess(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Register, validRegisterRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	require.NotNil(t, resp.Tokens)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
}

func TestHandlerRegisterValidationError(t *testing.T) {
	f := newHandlerFixture(t)

	req := validRegisterRequest()
	req.Email = "bad"
	req.Password = "123"
	req.PasswordConfirm = "123"

	rec := postJSON(t, f.handler.Register, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, httputil.CodeValidationFailed, resp.Code)
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "password")
}

func TestHandlerRegisterDuplicateEmail(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	rec := postJSON(t, f.handler.Register, validRegisterRequest())
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, httputil.CodeEmailAlreadyExists, resp.Code)
}

func TestHandlerRegisterRateLimited(t *testing.T) {
	f := newHandlerFixture(t)

	var rec *httptest.ResponseRecorder
	for i := 0; i <= 10; i++ {
		req := validRegisterRequest()
		req.Email = fmt.Sprintf("user%d@example.com", i)
		req.Username = fmt.Sprintf("user%d", i)
		rec = postJSON(t, f.handler.Register, req)
	}

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, httputil.CodeTooManyRequests, decodeErrorResponse(t, rec).Code)
}

func TestHandlerLoginSuccess(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	rec := postJSON(t, f.handler.Login, LoginRequest{
		Email:    "alice@example.com",
		Password: "str0ngpass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Tokens)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	assert.Empty(t, rec.Result().Cookies(), "API clients get body tokens, not cookies")
}

func TestHandlerLoginSetsCookiesForBrowsers(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	data, err := json.Marshal(LoginRequest{Email: "alice@example.com", Password: "str0ngpass"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Accept", "text/html")
	req.RemoteAddr = "203.0.113.7:51234"

	rec := httptest.NewRecorder()
	f.handler.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	names := make(map[string]bool)
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = c.HttpOnly
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Tokens, "browser clients must not see tokens in the body")
}

func TestHandlerLoginInvalidCredentials(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	rec := postJSON(t, f.handler.Login, LoginRequest{
		Email:    "alice@example.com",
		Password: "wrongpass1",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httputil.CodeInvalidCredentials, decodeErrorResponse(t, rec).Code)
}

func TestHandlerLoginDisabledAccount(t *testing.T) {
	f := newHandlerFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "str0ngpass")
	seeded.IsActive = false

	rec := postJSON(t, f.handler.Login, LoginRequest{
		Email:    "alice@example.com",
		Password: "str0ngpass",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httputil.CodeAccountDisabled, decodeErrorResponse(t, rec).Code)
}

func TestHandlerRefreshAndLogout(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	_, tokens, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "str0ngpass",
	})
	require.NoError(t, err)

	rec := postJSON(t, f.handler.Refresh, RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated AuthTokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	rec = postJSON(t, f.handler.Logout, RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, f.handler.Refresh, RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httputil.CodeInvalidRefreshToken, decodeErrorResponse(t, rec).Code)
}

func TestHandlerRefreshMissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Refresh, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeRefreshTokenRequired, decodeErrorResponse(t, rec).Code)
}

func TestHandlerPasswordResetUnknownEmail(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.RequestPasswordReset, PasswordResetRequest{
		Email: "ghost@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, httputil.CodeUserNotFound, resp.Code)
	assert.Equal(t, "No user found with this email address.", resp.Error)
}

func TestHandlerPasswordResetEmailCooldown(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedUser(t, "alice@example.com", "str0ngpass")

	rec := postJSON(t, f.handler.RequestPasswordReset, PasswordResetRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.emails.waitForSend(t)

	rec = postJSON(t, f.handler.RequestPasswordReset, PasswordResetRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, httputil.CodeCooldownActive, decodeErrorResponse(t, rec).Code)
}

func TestHandlerPasswordResetConfirmFlow(t *testing.T) {
	f := newHandlerFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "oldpass123")

	reset, err := f.tokens.IssueReset(context.Background(), seeded.ID)
	require.NoError(t, err)

	rec := postJSON(t, f.handler.ConfirmPasswordReset, PasswordResetConfirmRequest{
		Token:              reset.Value,
		NewPassword:        "newpass456",
		NewPasswordConfirm: "newpass456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Replay is rejected
	rec = postJSON(t, f.handler.ConfirmPasswordReset, PasswordResetConfirmRequest{
		Token:              reset.Value,
		NewPassword:        "another78",
		NewPasswordConfirm: "another78",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTokenAlreadyUsed, decodeErrorResponse(t, rec).Code)
}

func TestHandlerPasswordResetConfirmExpiredToken(t *testing.T) {
	f := newHandlerFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "oldpass123")

	reset, err := f.tokens.IssueReset(context.Background(), seeded.ID)
	require.NoError(t, err)
	reset.ExpiresAt = time.Now().Add(-time.Minute)

	rec := postJSON(t, f.handler.ConfirmPasswordReset, PasswordResetConfirmRequest{
		Token:              reset.Value,
		NewPassword:        "newpass456",
		NewPasswordConfirm: "newpass456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTokenExpired, decodeErrorResponse(t, rec).Code)
}

func TestHandlerVerifyEmailFlow(t *testing.T) {
	f := newHandlerFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "str0ngpass")

	verification, err := f.tokens.IssueVerification(context.Background(), seeded.ID)
	require.NoError(t, err)

	rec := postJSON(t, f.handler.VerifyEmail, VerifyEmailRequest{Token: verification.Value})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, seeded.IsVerified)

	rec = postJSON(t, f.handler.VerifyEmail, VerifyEmailRequest{Token: verification.Value})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeAlreadyVerified, decodeErrorResponse(t, rec).Code)
}

func TestHandlerVerifyEmailMissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.VerifyEmail, VerifyEmailRequest{Token: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTokenRequired, decodeErrorResponse(t, rec).Code)
}

func TestHandlerResendVerificationAlwaysSucceeds(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.ResendVerificationEmail, ResendVerificationRequest{
		Email: "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerChangePasswordRequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.ChangePassword, ChangePasswordRequest{
		OldPassword:        "oldpass123",
		NewPassword:        "newpass456",
		NewPasswordConfirm: "newpass456",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httputil.CodeUnauthenticated, decodeErrorResponse(t, rec).Code)
}

func TestHandlerChangePasswordSuccess(t *testing.T) {
	f := newHandlerFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "oldpass123")

	data, err := json.Marshal(ChangePasswordRequest{
		OldPassword:        "oldpass123",
		NewPassword:        "newpass456",
		NewPasswordConfirm: "newpass456",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("X-Client-Type", "api")
	req = req.WithContext(context.WithValue(req.Context(), UserIDContextKey, seeded.ID))

	rec := httptest.NewRecorder()
	f.handler.ChangePassword(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, VerifyPassword(f.users.passwordUpdates[seeded.ID], "newpass456"))
}
