package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordAndVerify(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, VerifyPassword(hash, "correct horse battery"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "same password"))
	assert.True(t, VerifyPassword(second, "same password"))
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifyPassword("", "password"))
	assert.False(t, VerifyPassword("not-a-hash", "password"))
	assert.False(t, VerifyPassword("$argon2id$v=19$m=65536,t=3,p=4$broken", "password"))
}

func TestGenerateRandomTokenIsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := generateRandomToken()
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
}
