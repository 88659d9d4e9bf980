package audit

import (
	"time"

	"github.com/google/uuid"
)

// Failure reasons recorded with unsuccessful login attempts
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountDisabled    = "account_disabled"
	ReasonUnknownEmail       = "unknown_email"
)

// Attempt is one login attempt. UserID is set only when the attempt
// succeeded; failed attempts keep just the submitted email so a bad
// guess never links to a real account.
type Attempt struct {
	UserID        *uuid.UUID
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	CreatedAt     time.Time
}
