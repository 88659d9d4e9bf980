package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Ashutosh0212/postgenius/internal/database"
	"github.com/Ashutosh0212/postgenius/internal/user"
)

// TokenRepository persists one-time verification and reset tokens in
// Postgres. Tokens are soft-expired via the is_used flag and the expiry
// timestamp; rows are never deleted so the full history stays auditable.
type TokenRepository struct {
	db                 *bun.DB
	verificationExpiry time.Duration
	resetExpiry        time.Duration
}

func NewTokenRepository(db *bun.DB, verificationExpiry, resetExpiry time.Duration) *TokenRepository {
	return &TokenRepository{
		db:                 db,
		verificationExpiry: verificationExpiry,
		resetExpiry:        resetExpiry,
	}
}

// IssueVerification creates a new email verification token for the user.
// Older tokens are left untouched; a fresh request always gets a fresh token.
func (r *TokenRepository) IssueVerification(ctx context.Context, userID uuid.UUID) (*Token, error) {
	return r.issue(ctx, userID, KindVerification)
}

// IssueReset creates a new password reset token for the user
func (r *TokenRepository) IssueReset(ctx context.Context, userID uuid.UUID) (*Token, error) {
	return r.issue(ctx, userID, KindReset)
}

func (r *TokenRepository) issue(ctx context.Context, userID uuid.UUID, kind TokenKind) (*Token, error) {
	value, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	row := database.AuthToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(r.expiry(kind)),
	}

	switch kind {
	case KindVerification:
		model := &database.EmailVerification{AuthToken: row}
		if _, err := r.db.NewInsert().Model(model).Returning("*").Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to store verification token: %w", err)
		}
		return mapAuthToken(&model.AuthToken, kind), nil
	default:
		model := &database.PasswordResetToken{AuthToken: row}
		if _, err := r.db.NewInsert().Model(model).Returning("*").Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to store reset token: %w", err)
		}
		return mapAuthToken(&model.AuthToken, kind), nil
	}
}

// ConsumeVerification atomically marks the token used and flips the owning
// account to verified. Both changes commit together or not at all.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, tokenValue string) (*user.User, error) {
	return r.consume(ctx, tokenValue, KindVerification, func(ctx context.Context, tx bun.Tx, userID uuid.UUID) error {
		result, err := tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("is_verified = ?", true).
			Set("updated_at = NOW()").
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// ConsumeReset atomically marks the token used and installs the new
// password hash on the owning account.
func (r *TokenRepository) ConsumeReset(ctx context.Context, tokenValue string, newPasswordHash string) (*user.User, error) {
	return r.consume(ctx, tokenValue, KindReset, func(ctx context.Context, tx bun.Tx, userID uuid.UUID) error {
		result, err := tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("password_hash = ?", newPasswordHash).
			Set("updated_at = NOW()").
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// consume runs the check-and-mark-used sequence inside one transaction.
// The row lock taken by FOR UPDATE serializes concurrent consume attempts
// on the same token: the loser observes is_used after the winner commits.
// Expiry is checked before the used flag so an expired token reports
// expiry no matter how often it was tried.
func (r *TokenRepository) consume(
	ctx context.Context,
	tokenValue string,
	kind TokenKind,
	apply func(ctx context.Context, tx bun.Tx, userID uuid.UUID) error,
) (*user.User, error) {
	var owner *user.User

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := r.lockToken(ctx, tx, tokenValue, kind)
		if err != nil {
			return err
		}

		if time.Now().After(token.ExpiresAt) {
			return ErrTokenExpired
		}
		if token.IsUsed {
			return ErrTokenAlreadyUsed
		}

		if err := r.markUsed(ctx, tx, token.ID, kind); err != nil {
			return err
		}

		if err := apply(ctx, tx, token.UserID); err != nil {
			return err
		}

		dbUser := new(database.User)
		if err := tx.NewSelect().Model(dbUser).Where("id = ?", token.UserID).Scan(ctx); err != nil {
			return fmt.Errorf("failed to load token owner: %w", err)
		}
		owner = &user.User{
			ID:         dbUser.ID,
			Email:      dbUser.Email,
			Username:   dbUser.Username,
			FirstName:  dbUser.FirstName,
			LastName:   dbUser.LastName,
			IsVerified: dbUser.IsVerified,
			IsActive:   dbUser.IsActive,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return owner, nil
}

func (r *TokenRepository) lockToken(ctx context.Context, tx bun.Tx, tokenValue string, kind TokenKind) (*database.AuthToken, error) {
	switch kind {
	case KindVerification:
		model := new(database.EmailVerification)
		err := tx.NewSelect().
			Model(model).
			Where("token = ?", tokenValue).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrTokenNotFound
			}
			return nil, fmt.Errorf("failed to load verification token: %w", err)
		}
		return &model.AuthToken, nil
	default:
		model := new(database.PasswordResetToken)
		err := tx.NewSelect().
			Model(model).
			Where("token = ?", tokenValue).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrTokenNotFound
			}
			return nil, fmt.Errorf("failed to load reset token: %w", err)
		}
		return &model.AuthToken, nil
	}
}

func (r *TokenRepository) markUsed(ctx context.Context, tx bun.Tx, tokenID int64, kind TokenKind) error {
	var result sql.Result
	var err error

	switch kind {
	case KindVerification:
		result, err = tx.NewUpdate().
			Model((*database.EmailVerification)(nil)).
			Set("is_used = ?", true).
			Where("id = ?", tokenID).
			Where("is_used = ?", false).
			Exec(ctx)
	default:
		result, err = tx.NewUpdate().
			Model((*database.PasswordResetToken)(nil)).
			Set("is_used = ?", true).
			Where("id = ?", tokenID).
			Where("is_used = ?", false).
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenAlreadyUsed
	}
	return nil
}

func (r *TokenRepository) expiry(kind TokenKind) time.Duration {
	if kind == KindVerification {
		return r.verificationExpiry
	}
	return r.resetExpiry
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func mapAuthToken(row *database.AuthToken, kind TokenKind) *Token {
	return &Token{
		ID:        row.ID,
		UserID:    row.UserID,
		Value:     row.Token,
		Kind:      kind,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Used:      row.IsUsed,
	}
}
