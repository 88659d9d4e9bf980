package auth

import (
	"time"

	"github.com/google/uuid"
)

// AuthTokens is the session credential pair returned on login/refresh
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken is the domain view of a stored refresh token
type RefreshToken struct {
	ID        int64
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the token was explicitly revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the token is past its expiry
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token can still mint access tokens
func (t *RefreshToken) IsValid() bool {
	return !t.IsRevoked() && !t.IsExpired()
}

// TokenKind distinguishes the two one-time token flavors
type TokenKind string

const (
	KindVerification TokenKind = "verification"
	KindReset        TokenKind = "reset"
)

// Token is a one-time email-verification or password-reset token.
// Lifecycle: issued, then either consumed once or left to expire.
// Consumed and expired tokens stay in storage for audit.
type Token struct {
	ID        int64
	UserID    uuid.UUID
	Value     string
	Kind      TokenKind
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// IsExpired reports whether the token is past its expiry
func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token can still be consumed
func (t *Token) IsValid() bool {
	return !t.Used && !t.IsExpired()
}
