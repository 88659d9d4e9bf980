package user

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// TierLimits holds the per-tier resource caps
type TierLimits struct {
	AIGenerationLimit   int
	SocialAccountsLimit int
	TeamMembersLimit    int
}

// DefaultTierLimits maps each subscription tier to its resource caps.
// New accounts always start on the free tier; billing upgrades tiers later.
var DefaultTierLimits = map[string]TierLimits{
	TierFree:       {AIGenerationLimit: 10, SocialAccountsLimit: 3, TeamMembersLimit: 1},
	TierPro:        {AIGenerationLimit: 100, SocialAccountsLimit: 10, TeamMembersLimit: 5},
	TierEnterprise: {AIGenerationLimit: 1000, SocialAccountsLimit: 50, TeamMembersLimit: 25},
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose password hash in JSON
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Timezone     string     `json:"timezone"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Profile *Profile `json:"profile,omitempty"`
}

// Profile holds subscription and usage data owned by the account
type Profile struct {
	Bio                   string     `json:"bio"`
	Company               string     `json:"company"`
	Website               string     `json:"website"`
	Location              string     `json:"location"`
	SubscriptionTier      string     `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	AIGenerationLimit     int        `json:"ai_generation_limit"`
	AIGenerationUsed      int        `json:"ai_generation_used"`
	SocialAccountsLimit   int        `json:"social_accounts_limit"`
	TeamMembersLimit      int        `json:"team_members_limit"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// AIGenerationRemaining returns the unused portion of the monthly AI quota
func (p *Profile) AIGenerationRemaining() int {
	remaining := p.AIGenerationLimit - p.AIGenerationUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsSubscriptionActive reports whether the paid subscription is still valid.
// Free tier accounts have no expiry and are always active.
func (p *Profile) IsSubscriptionActive() bool {
	if p.SubscriptionExpiresAt == nil {
		return p.SubscriptionTier == TierFree
	}
	return p.SubscriptionExpiresAt.After(time.Now())
}
