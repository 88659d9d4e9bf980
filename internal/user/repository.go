package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Ashutosh0212/postgenius/internal/database"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("a user with this email already exists")
	ErrDuplicateUsername = errors.New("a user with this username already exists")
)

// NewUserInput carries the fields needed to create an account
type NewUserInput struct {
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	Timezone     string
}

// Repository handles user and profile persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user together with its free-tier profile.
// Both rows are committed in one transaction so a registration never
// produces a user without a profile.
func (r *Repository) Create(ctx context.Context, input NewUserInput) (*User, error) {
	tz := input.Timezone
	if tz == "" {
		tz = "UTC"
	}

	dbUser := &database.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhoneNumber:  input.PhoneNumber,
		Timezone:     tz,
		IsActive:     true,
	}

	limits := DefaultTierLimits[TierFree]

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(dbUser).
			Returning("*").
			Exec(ctx); err != nil {
			return err
		}

		dbProfile := &database.UserProfile{
			UserID:              dbUser.ID,
			SubscriptionTier:    TierFree,
			AIGenerationLimit:   limits.AIGenerationLimit,
			SocialAccountsLimit: limits.SocialAccountsLimit,
			TeamMembersLimit:    limits.TeamMembersLimit,
		}

		if _, err := tx.NewInsert().
			Model(dbProfile).
			Returning("*").
			Exec(ctx); err != nil {
			return err
		}

		dbUser.Profile = dbProfile
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			if strings.Contains(err.Error(), "username") {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email, including the profile
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Relation("Profile").
		Where("u.email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID, including the profile
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Relation("Profile").
		Where("u.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// EmailExists reports whether an account with the given email exists
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email = ?", email).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// UsernameExists reports whether an account with the given username exists
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("username = ?", username).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// UpdateLastLogin stamps the user's last successful login time
func (r *Repository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_login = NOW()").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdatePassword replaces a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// ProfileUpdate carries the user-editable account and profile fields.
// Subscription tier and resource caps are deliberately absent: only
// billing mutates those.
type ProfileUpdate struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Timezone    string `json:"timezone"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Website     string `json:"website"`
	Location    string `json:"location"`
}

// UpdateProfile applies the user-editable fields to both rows in one transaction
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*database.User)(nil)).
			Set("first_name = ?", update.FirstName).
			Set("last_name = ?", update.LastName).
			Set("phone_number = ?", update.PhoneNumber).
			Set("timezone = ?", update.Timezone).
			Set("updated_at = NOW()").
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*database.UserProfile)(nil)).
			Set("bio = ?", update.Bio).
			Set("company = ?", update.Company).
			Set("website = ?", update.Website).
			Set("location = ?", update.Location).
			Set("updated_at = NOW()").
			Where("user_id = ?", userID).
			Exec(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return r.GetByID(ctx, userID)
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// mapDBUserToModel converts database models to the domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:           dbu.ID,
		Email:        dbu.Email,
		Username:     dbu.Username,
		PasswordHash: dbu.PasswordHash,
		FirstName:    dbu.FirstName,
		LastName:     dbu.LastName,
		PhoneNumber:  dbu.PhoneNumber,
		Timezone:     dbu.Timezone,
		IsVerified:   dbu.IsVerified,
		IsActive:     dbu.IsActive,
		LastLogin:    dbu.LastLogin,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
	if dbu.Profile != nil {
		u.Profile = &Profile{
			Bio:                   dbu.Profile.Bio,
			Company:               dbu.Profile.Company,
			Website:               dbu.Profile.Website,
			Location:              dbu.Profile.Location,
			SubscriptionTier:      dbu.Profile.SubscriptionTier,
			SubscriptionExpiresAt: dbu.Profile.SubscriptionExpiresAt,
			AIGenerationLimit:     dbu.Profile.AIGenerationLimit,
			AIGenerationUsed:      dbu.Profile.AIGenerationUsed,
			SocialAccountsLimit:   dbu.Profile.SocialAccountsLimit,
			TeamMembersLimit:      dbu.Profile.TeamMembersLimit,
		}
	}
	return u
}
