package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ashutosh0212/postgenius/internal/audit"
	"github.com/Ashutosh0212/postgenius/internal/logging"
	"github.com/Ashutosh0212/postgenius/internal/user"
)

// Service handles authentication business logic
type Service struct {
	userStore            UserStore
	refreshRepo          RefreshTokenRepository
	tokenStore           TokenStore
	tokenService         TokenService
	emailService         EmailService
	attempts             AttemptRecorder
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	userStore UserStore,
	refreshRepo RefreshTokenRepository,
	tokenStore TokenStore,
	tokenService TokenService,
	emailService EmailService,
	attempts AttemptRecorder,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		userStore:            userStore,
		refreshRepo:          refreshRepo,
		tokenStore:           tokenStore,
		tokenService:         tokenService,
		emailService:         emailService,
		attempts:             attempts,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// RegisterInput carries the registration request fields
type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	PhoneNumber     string
	Timezone        string
}

// LoginInput carries the login credentials plus the request origin used
// for the attempt audit trail
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Register creates a new account with a free-tier profile, issues a session
// token pair, and sends a verification email. The email send is best-effort:
// a failure is logged and never fails the registration.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.User, *AuthTokens, error) {
	if fields := validateRegistration(input); len(fields) > 0 {
		return nil, nil, NewValidationError(fields)
	}

	if taken, err := s.userStore.EmailExists(ctx, input.Email); err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, nil, user.ErrDuplicateEmail
	}
	if taken, err := s.userStore.UsernameExists(ctx, input.Username); err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, nil, user.ErrDuplicateUsername
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userStore.Create(ctx, user.NewUserInput{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhoneNumber:  input.PhoneNumber,
		Timezone:     input.Timezone,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicateUsername) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	verification, err := s.tokenStore.IssueVerification(ctx, newUser.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	tokens, err := s.generateTokens(ctx, newUser.ID, newUser.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, newUser.Email, newUser.FirstName, verification.Value); err != nil {
			s.logger.Warn("failed to send verification email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, tokens, nil
}

// Login authenticates the credentials and returns the account with a fresh
// token pair. Every attempt, good or bad, lands in the attempt log.
func (s *Service) Login(ctx context.Context, input LoginInput) (*user.User, *AuthTokens, error) {
	if input.Email == "" || input.Password == "" {
		s.recordAttempt(ctx, nil, input, audit.ReasonInvalidCredentials)
		return nil, nil, ErrInvalidCredentials
	}

	existingUser, err := s.userStore.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.recordAttempt(ctx, nil, input, audit.ReasonUnknownEmail)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, input.Password) {
		s.recordAttempt(ctx, nil, input, audit.ReasonInvalidCredentials)
		return nil, nil, ErrInvalidCredentials
	}

	if !existingUser.IsActive {
		s.recordAttempt(ctx, nil, input, audit.ReasonAccountDisabled)
		return nil, nil, ErrAccountDisabled
	}

	tokens, err := s.generateTokens(ctx, existingUser.ID, existingUser.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.userStore.UpdateLastLogin(ctx, existingUser.ID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", existingUser.ID, "error", err)
	}

	s.recordAttempt(ctx, &existingUser.ID, input, "")

	return existingUser, tokens, nil
}

// Refresh validates a refresh token, rotates it, and returns a new pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidToken
		}
		if errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !rt.IsValid() {
		if rt.IsRevoked() {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, ErrRefreshTokenExpired
	}

	// Rotate: revoke the presented token before minting its successor
	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	existingUser, err := s.userStore.GetByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tokens, err := s.generateTokens(ctx, existingUser.ID, existingUser.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// Logout revokes the refresh token so it can no longer mint access tokens
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword rotates the password after verifying the old one.
// All refresh tokens are revoked so stolen sessions die with the old password.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirm string) error {
	fields := validatePasswordChange(newPassword, confirm)

	existingUser, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if oldPassword == "" || !VerifyPassword(existingUser.PasswordHash, oldPassword) {
		fields["old_password"] = "old password is incorrect"
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userStore.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.refreshRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke user tokens after password change", "user_id", userID, "error", err)
	}

	return nil
}

// RequestPasswordReset issues a reset token and emails it. An unknown email
// is reported to the caller; no token is created for it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existingUser, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	reset, err := s.tokenStore.IssueReset(ctx, existingUser.ID)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, existingUser.Email, existingUser.FirstName, reset.Value); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// ConfirmPasswordReset consumes the reset token and installs the new
// password in one atomic step
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirm string) error {
	if fields := validatePasswordChange(newPassword, confirm); len(fields) > 0 {
		return NewValidationError(fields)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	owner, err := s.tokenStore.ConsumeReset(ctx, token, passwordHash)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenAlreadyUsed) {
			return err
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	if err := s.refreshRepo.RevokeAllUserTokens(ctx, owner.ID); err != nil {
		s.logger.Warn("failed to revoke user tokens after password reset", "user_id", owner.ID, "error", err)
	}

	return nil
}

// VerifyEmail consumes the verification token and marks the account verified
func (s *Service) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	owner, err := s.tokenStore.ConsumeVerification(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenAlreadyUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	return owner, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. Always returns nil to prevent email enumeration.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	existingUser, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for resend verification", "error", err)
		return nil
	}

	if existingUser.IsVerified {
		return nil
	}

	verification, err := s.tokenStore.IssueVerification(ctx, existingUser.ID)
	if err != nil {
		s.logger.Warn("failed to issue verification token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, existingUser.Email, existingUser.FirstName, verification.Value); err != nil {
			s.logger.Warn("failed to resend verification email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// generateTokens creates an access token and stores a fresh refresh token
func (s *Service) generateTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateToken(userID, email, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.refreshTokenDuration)
	if err := s.refreshRepo.StoreRefreshToken(ctx, userID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

func (s *Service) recordAttempt(ctx context.Context, userID *uuid.UUID, input LoginInput, failureReason string) {
	s.attempts.Record(ctx, audit.Attempt{
		UserID:        userID,
		Email:         input.Email,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
		Success:       failureReason == "",
		FailureReason: failureReason,
	})
}
