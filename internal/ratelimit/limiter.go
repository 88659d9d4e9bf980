package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRequests = 10
	defaultWindow      = 15 * time.Minute
	emailCooldown      = 2 * time.Minute
)

// Limiter implements a fixed-window per-IP rate limit plus a per-email
// cooldown, both backed by Redis counters with TTLs.
type Limiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client:      client,
		maxRequests: defaultMaxRequests,
		window:      defaultWindow,
	}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func cooldownKey(email string) string {
	return fmt.Sprintf("ratelimit:email_cooldown:%s", email)
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its
// request budget for the given purpose within the current window
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count >= l.maxRequests, nil
}

// RecordIPRequestWithPurpose counts a request against the IP's window,
// starting the window on the first request
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return nil
}

// CheckIPRateLimit checks the default password-reset purpose
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "password_reset")
}

// RecordIPRequest records against the default password-reset purpose
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "password_reset")
}

// CheckEmailCooldown reports whether the email address is still inside its
// cooldown period
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return exists > 0, nil
}

// SetEmailCooldown starts the cooldown period for an email address
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, cooldownKey(email), "1", emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}
