package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhoneNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phone string
		want  bool
	}{
		{"", true}, // optional field
		{"+12025550143", true},
		{"12025550143", true},
		{"203555014", true},
		{"+999999999999999", true},
		{"12345", false},
		{"+12345678901234567", false},
		{"call me maybe", false},
		{"+1 202 555 0143", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidPhoneNumber(tt.phone), "phone %q", tt.phone)
		})
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	t.Parallel()

	valid := ProfileUpdate{
		FirstName:   "Alice",
		LastName:    "Doe",
		PhoneNumber: "+12025550143",
		Website:     "https://example.com",
		Bio:         "Social media manager",
	}
	assert.Empty(t, validateProfileUpdate(valid))

	missingNames := valid
	missingNames.FirstName = " "
	missingNames.LastName = ""
	fields := validateProfileUpdate(missingNames)
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "last_name")

	badWebsite := valid
	badWebsite.Website = "ftp://example.com"
	assert.Contains(t, validateProfileUpdate(badWebsite), "website")

	longBio := valid
	longBio.Bio = strings.Repeat("a", 501)
	assert.Contains(t, validateProfileUpdate(longBio), "bio")
}
