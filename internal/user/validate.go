package user

import (
	"regexp"
	"strings"
)

// phonePattern accepts international numbers of 9 to 15 digits,
// optionally prefixed with + and a leading 1.
var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// ValidPhoneNumber reports whether the value matches the accepted phone format.
// Empty is valid: the field is optional.
func ValidPhoneNumber(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

func validateProfileUpdate(update ProfileUpdate) map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(update.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(update.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	if !ValidPhoneNumber(update.PhoneNumber) {
		fields["phone_number"] = "phone number must be entered in the format '+999999999', up to 15 digits"
	}
	if update.Website != "" && !strings.HasPrefix(update.Website, "http://") && !strings.HasPrefix(update.Website, "https://") {
		fields["website"] = "website must be an http or https URL"
	}
	if len(update.Bio) > 500 {
		fields["bio"] = "bio must be 500 characters or fewer"
	}

	return fields
}
