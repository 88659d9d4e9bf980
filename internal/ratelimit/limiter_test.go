package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewLimiter(client)
}

func TestIPRateLimitAllowsUnderBudget(t *testing.T) {
	_, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < defaultMaxRequests-1; i++ {
		require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "203.0.113.7", "login"))
	}

	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "203.0.113.7", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestIPRateLimitBlocksOverBudget(t *testing.T) {
	_, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < defaultMaxRequests; i++ {
		require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "203.0.113.7", "login"))
	}

	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "203.0.113.7", "login")
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestIPRateLimitPurposesAreIndependent(t *testing.T) {
	_, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < defaultMaxRequests; i++ {
		require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "203.0.113.7", "login"))
	}

	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "203.0.113.7", "register")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestIPRateLimitWindowResets(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < defaultMaxRequests; i++ {
		require.NoError(t, limiter.RecordIPRequest(ctx, "203.0.113.7"))
	}

	exceeded, err := limiter.CheckIPRateLimit(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, exceeded)

	mr.FastForward(defaultWindow + time.Second)

	exceeded, err = limiter.CheckIPRateLimit(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestEmailCooldown(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	ctx := context.Background()

	onCooldown, err := limiter.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, limiter.SetEmailCooldown(ctx, "alice@example.com"))

	onCooldown, err = limiter.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, onCooldown)

	// A different address is unaffected
	onCooldown, err = limiter.CheckEmailCooldown(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	mr.FastForward(emailCooldown + time.Second)

	onCooldown, err = limiter.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)
}
