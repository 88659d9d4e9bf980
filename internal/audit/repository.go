package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Ashutosh0212/postgenius/internal/database"
)

// Repository persists login attempts. The table is append-only:
// nothing here updates or deletes rows.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a login attempt
func (r *Repository) Insert(ctx context.Context, attempt Attempt) error {
	row := &database.LoginAttempt{
		UserID:        attempt.UserID,
		Email:         attempt.Email,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
		Success:       attempt.Success,
		FailureReason: attempt.FailureReason,
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	return nil
}

// CountRecentFailures counts failed attempts for an email within the window.
// The count feeds brute-force detection; no lockout is enforced yet.
func (r *Repository) CountRecentFailures(ctx context.Context, email string, window time.Duration) (int, error) {
	count, err := r.db.NewSelect().
		Model((*database.LoginAttempt)(nil)).
		Where("email = ?", email).
		Where("success = ?", false).
		Where("created_at > ?", time.Now().Add(-window)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent failures: %w", err)
	}

	return count, nil
}
