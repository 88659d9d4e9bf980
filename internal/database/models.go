package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model for the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string     `bun:"email,notnull,unique"`
	Username     string     `bun:"username,notnull,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	FirstName    string     `bun:"first_name,notnull"`
	LastName     string     `bun:"last_name,notnull"`
	PhoneNumber  string     `bun:"phone_number"`
	Timezone     string     `bun:"timezone,notnull,default:'UTC'"`
	IsVerified   bool       `bun:"is_verified,notnull,default:false"`
	IsActive     bool       `bun:"is_active,notnull,default:true"`
	LastLogin    *time.Time `bun:"last_login"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:now()"`

	Profile *UserProfile `bun:"rel:has-one,join:id=user_id"`
}

// UserProfile is the bun model for the user_profiles table (one per user)
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`

	ID                    int64      `bun:"id,pk,autoincrement"`
	UserID                uuid.UUID  `bun:"user_id,notnull,unique,type:uuid"`
	Bio                   string     `bun:"bio"`
	Company               string     `bun:"company"`
	Website               string     `bun:"website"`
	Location              string     `bun:"location"`
	SubscriptionTier      string     `bun:"subscription_tier,notnull,default:'free'"`
	SubscriptionExpiresAt *time.Time `bun:"subscription_expires_at"`
	AIGenerationLimit     int        `bun:"ai_generation_limit,notnull"`
	AIGenerationUsed      int        `bun:"ai_generation_used,notnull,default:0"`
	SocialAccountsLimit   int        `bun:"social_accounts_limit,notnull"`
	TeamMembersLimit      int        `bun:"team_members_limit,notnull"`
	CreatedAt             time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull,default:now()"`
}

// AuthToken is the bun model shared by the email_verifications and
// password_reset_tokens tables. The two kinds live in separate tables;
// the repository picks the table by token kind. Rows are never deleted,
// consumed tokens stay behind with is_used set for auditability.
type AuthToken struct {
	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Token     string    `bun:"token,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	IsUsed    bool      `bun:"is_used,notnull,default:false"`
}

// EmailVerification is an AuthToken stored in email_verifications
type EmailVerification struct {
	bun.BaseModel `bun:"table:email_verifications,alias:ev"`
	AuthToken
}

// PasswordResetToken is an AuthToken stored in password_reset_tokens
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`
	AuthToken
}

// LoginAttempt is the bun model for the login_attempts table.
// Rows are append-only; nothing updates or deletes them.
type LoginAttempt struct {
	bun.BaseModel `bun:"table:login_attempts,alias:la"`

	ID            int64      `bun:"id,pk,autoincrement"`
	UserID        *uuid.UUID `bun:"user_id,type:uuid"`
	Email         string     `bun:"email,notnull"`
	IPAddress     string     `bun:"ip_address,notnull"`
	UserAgent     string     `bun:"user_agent"`
	Success       bool       `bun:"success,notnull,default:false"`
	FailureReason string     `bun:"failure_reason"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:now()"`
}

// RefreshToken is the bun model for the refresh_tokens table
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64      `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	TokenHash string     `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:now()"`
	RevokedAt *time.Time `bun:"revoked_at"`
}
