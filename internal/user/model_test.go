package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTierLimits(t *testing.T) {
	t.Parallel()

	free := DefaultTierLimits[TierFree]
	assert.Equal(t, 10, free.AIGenerationLimit)
	assert.Equal(t, 3, free.SocialAccountsLimit)
	assert.Equal(t, 1, free.TeamMembersLimit)

	// Paid tiers only ever raise the caps
	assert.Greater(t, DefaultTierLimits[TierPro].AIGenerationLimit, free.AIGenerationLimit)
	assert.Greater(t, DefaultTierLimits[TierEnterprise].AIGenerationLimit, DefaultTierLimits[TierPro].AIGenerationLimit)
}

func TestFullName(t *testing.T) {
	t.Parallel()

	u := &User{FirstName: "Alice", LastName: "Doe"}
	assert.Equal(t, "Alice Doe", u.FullName())
}

func TestAIGenerationRemaining(t *testing.T) {
	t.Parallel()

	p := &Profile{AIGenerationLimit: 10, AIGenerationUsed: 4}
	assert.Equal(t, 6, p.AIGenerationRemaining())

	// Usage past the cap never goes negative
	p.AIGenerationUsed = 15
	assert.Equal(t, 0, p.AIGenerationRemaining())
}

func TestIsSubscriptionActive(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"free tier without expiry", Profile{SubscriptionTier: TierFree}, true},
		{"paid tier without expiry", Profile{SubscriptionTier: TierPro}, false},
		{"paid tier still valid", Profile{SubscriptionTier: TierPro, SubscriptionExpiresAt: &future}, true},
		{"paid tier lapsed", Profile{SubscriptionTier: TierPro, SubscriptionExpiresAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.profile.IsSubscriptionActive())
		})
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	t.Parallel()

	u := &User{Email: "alice@example.com", PasswordHash: "$argon2id$secret"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "argon2id")
	assert.Contains(t, string(data), "alice@example.com")
}
