package auth

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/Ashutosh0212/postgenius/internal/user"
)

const maxEmailLen = 254

// fieldCheck validates one input field and returns (field, message) on
// failure. The pipeline runs every check and collects all failures so the
// client sees the full picture in one round trip.
type fieldCheck func() (string, string)

func runChecks(checks ...fieldCheck) map[string]string {
	fields := make(map[string]string)
	for _, check := range checks {
		if field, msg := check(); msg != "" {
			if _, seen := fields[field]; !seen {
				fields[field] = msg
			}
		}
	}
	return fields
}

func checkEmailFormat(email string) fieldCheck {
	return func() (string, string) {
		if email == "" {
			return "email", "email is required"
		}
		if len(email) > maxEmailLen {
			return "email", "email is too long"
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return "email", "invalid email format"
		}
		return "email", ""
	}
}

func checkUsername(username string) fieldCheck {
	return func() (string, string) {
		if strings.TrimSpace(username) == "" {
			return "username", "username is required"
		}
		if len(username) > 150 {
			return "username", "username is too long"
		}
		return "username", ""
	}
}

func checkRequired(field, value, message string) fieldCheck {
	return func() (string, string) {
		if strings.TrimSpace(value) == "" {
			return field, message
		}
		return field, ""
	}
}

func checkPasswordStrength(field, password string) fieldCheck {
	return func() (string, string) {
		if password == "" {
			return field, "password is required"
		}
		if len(password) < 8 {
			return field, "password must be at least 8 characters"
		}
		allDigits := true
		for _, r := range password {
			if !unicode.IsDigit(r) {
				allDigits = false
				break
			}
		}
		if allDigits {
			return field, "password cannot be entirely numeric"
		}
		return field, ""
	}
}

func checkPasswordsMatch(field, password, confirm string) fieldCheck {
	return func() (string, string) {
		if password != confirm {
			return field, "passwords don't match"
		}
		return field, ""
	}
}

func checkPhoneNumber(phone string) fieldCheck {
	return func() (string, string) {
		if !user.ValidPhoneNumber(phone) {
			return "phone_number", "phone number must be entered in the format '+999999999', up to 15 digits"
		}
		return "phone_number", ""
	}
}

// validateRegistration runs the full registration pipeline
func validateRegistration(input RegisterInput) map[string]string {
	return runChecks(
		checkEmailFormat(input.Email),
		checkUsername(input.Username),
		checkRequired("first_name", input.FirstName, "first name is required"),
		checkRequired("last_name", input.LastName, "last name is required"),
		checkPasswordStrength("password", input.Password),
		checkPasswordsMatch("password_confirm", input.Password, input.PasswordConfirm),
		checkPhoneNumber(input.PhoneNumber),
	)
}

// validatePasswordChange validates a new password and its confirmation
func validatePasswordChange(newPassword, confirm string) map[string]string {
	return runChecks(
		checkPasswordStrength("new_password", newPassword),
		checkPasswordsMatch("new_password_confirm", newPassword, confirm),
	)
}
