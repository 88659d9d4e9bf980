package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		email, ok := GetUserEmailFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-ID", userID.String())
		w.Header().Set("X-User-Email", email)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthWithBearerToken(t *testing.T) {
	t.Parallel()

	svc := newTestPasetoService(t)
	mw := NewMiddleware(svc)

	userID := uuid.New()
	token, err := svc.CreateToken(userID, "alice@example.com", 15*time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Header().Get("X-User-ID"))
	assert.Equal(t, "alice@example.com", rec.Header().Get("X-User-Email"))
}

func TestRequireAuthWithCookie(t *testing.T) {
	t.Parallel()

	svc := newTestPasetoService(t)
	mw := NewMiddleware(svc)

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", 15*time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	rec := httptest.NewRecorder()
	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(newTestPasetoService(t))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestPasetoService(t)
	mw := NewMiddleware(svc)

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(newTestPasetoService(t))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
