package httputil

// Machine-readable error codes returned alongside human-readable messages.
// Clients should branch on these rather than on message text.
const (
	CodeInvalidRequestBody   = "invalid_request_body"
	CodeValidationFailed     = "validation_failed"
	CodeInternalError        = "internal_error"
	CodeTooManyRequests      = "too_many_requests"
	CodeCooldownActive       = "cooldown_active"
	CodeUnauthenticated      = "unauthenticated"
	CodeInvalidAuthHeader    = "invalid_auth_header"
	CodeMissingAuth          = "missing_auth"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeAccountDisabled      = "account_disabled"
	CodeEmailAlreadyExists   = "email_already_exists"
	CodeUsernameTaken        = "username_taken"
	CodeUserNotFound         = "user_not_found"
	CodeTokenRequired        = "token_required"
	CodeTokenExpired         = "token_expired"
	CodeTokenAlreadyUsed     = "token_already_used"
	CodeInvalidToken         = "invalid_token"
	CodeInvalidTokenUserID   = "invalid_token_user_id"
	CodeRefreshTokenRequired = "refresh_token_required"
	CodeInvalidRefreshToken  = "invalid_refresh_token"
	CodeInvalidResetToken    = "invalid_reset_token"
	CodeAlreadyVerified      = "already_verified"
	CodeVerificationFailed   = "verification_failed"
)
