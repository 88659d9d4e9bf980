package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegistrationCollectsAllFailures(t *testing.T) {
	t.Parallel()

	fields := validateRegistration(RegisterInput{
		Email:           "bad",
		Username:        "",
		Password:        "short",
		PasswordConfirm: "different",
		FirstName:       "",
		LastName:        "",
	})

	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "password_confirm")
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "last_name")
}

func TestValidateRegistrationAcceptsValidInput(t *testing.T) {
	t.Parallel()

	fields := validateRegistration(RegisterInput{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "str0ngpass",
		PasswordConfirm: "str0ngpass",
		FirstName:       "Alice",
		LastName:        "Doe",
		PhoneNumber:     "+12025550143",
	})

	assert.Empty(t, fields)
}

func TestValidateRegistrationPhoneFormat(t *testing.T) {
	t.Parallel()

	fields := validateRegistration(RegisterInput{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "str0ngpass",
		PasswordConfirm: "str0ngpass",
		FirstName:       "Alice",
		LastName:        "Doe",
		PhoneNumber:     "call me maybe",
	})

	assert.Contains(t, fields, "phone_number")
}

func TestValidateRegistrationEmailTooLong(t *testing.T) {
	t.Parallel()

	fields := validateRegistration(RegisterInput{
		Email:           strings.Repeat("a", 250) + "@example.com",
		Username:        "alice",
		Password:        "str0ngpass",
		PasswordConfirm: "str0ngpass",
		FirstName:       "Alice",
		LastName:        "Doe",
	})

	assert.Equal(t, "email is too long", fields["email"])
}

func TestValidatePasswordChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		password  string
		confirm   string
		wantField string
	}{
		{"valid", "newpass456", "newpass456", ""},
		{"too short", "np1", "np1", "new_password"},
		{"all numeric", "123456789", "123456789", "new_password"},
		{"mismatch", "newpass456", "newpass457", "new_password_confirm"},
		{"empty", "", "", "new_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fields := validatePasswordChange(tt.password, tt.confirm)
			if tt.wantField == "" {
				assert.Empty(t, fields)
				return
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	t.Parallel()

	err := NewValidationError(map[string]string{
		"email":    "invalid email format",
		"password": "password is required",
	})

	// Sorted field order keeps the message deterministic
	assert.Equal(t, "validation failed: email: invalid email format; password: password is required", err.Error())
}
