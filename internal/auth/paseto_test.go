package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPasetoService(t *testing.T) *PasetoService {
	t.Helper()

	svc, err := NewPasetoService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return svc
}

func TestPasetoServiceRequires32ByteKey(t *testing.T) {
	t.Parallel()

	_, err := NewPasetoService([]byte("too-short"))
	assert.Error(t, err)
}

func TestPasetoRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestPasetoService(t)

	userID := uuid.New()
	token, err := svc.CreateToken(userID, "alice@example.com", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestPasetoExpiredToken(t *testing.T) {
	t.Parallel()
	svc := newTestPasetoService(t)

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasetoGarbageToken(t *testing.T) {
	t.Parallel()
	svc := newTestPasetoService(t)

	_, err := svc.VerifyToken("v4.local.garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasetoWrongKey(t *testing.T) {
	t.Parallel()
	svc := newTestPasetoService(t)

	other, err := NewPasetoService([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", 15*time.Minute)
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
