package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ashutosh0212/postgenius/internal/audit"
	"github.com/Ashutosh0212/postgenius/internal/user"
)

// UserStore is the account persistence the auth service needs
type UserStore interface {
	Create(ctx context.Context, input user.NewUserInput) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// TokenStore issues and consumes one-time verification and reset tokens.
// Consume operations are atomic: marking the token used and applying the
// mutation it authorizes commit together or not at all.
type TokenStore interface {
	IssueVerification(ctx context.Context, userID uuid.UUID) (*Token, error)
	IssueReset(ctx context.Context, userID uuid.UUID) (*Token, error)
	ConsumeVerification(ctx context.Context, tokenValue string) (*user.User, error)
	ConsumeReset(ctx context.Context, tokenValue string, newPasswordHash string) (*user.User, error)
}

// RefreshTokenRepository defines the interface for refresh token storage
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// AttemptRecorder appends login attempts; it must never fail the caller
type AttemptRecorder interface {
	Record(ctx context.Context, attempt audit.Attempt)
}

// TokenService defines the interface for access token creation and validation
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, firstName, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, firstName, token string) error
}
