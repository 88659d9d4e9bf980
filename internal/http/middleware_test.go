package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithSecurityHeaders(t *testing.T, path string) http.Header {
	t.Helper()

	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	headers := serveWithSecurityHeaders(t, "/auth/login")

	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
	assert.Equal(t, "camera=(), microphone=(), geolocation=()", headers.Get("Permissions-Policy"))
	assert.Equal(t, "default-src 'none'", headers.Get("Content-Security-Policy"))
}

func TestSecurityHeadersRelaxCSPForSwagger(t *testing.T) {
	t.Parallel()

	headers := serveWithSecurityHeaders(t, "/swagger/index.html")

	csp := headers.Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline'")
	assert.NotEqual(t, "default-src 'none'", csp)
}
