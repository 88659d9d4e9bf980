package audit

import (
	"context"
	"time"

	"github.com/Ashutosh0212/postgenius/internal/logging"
)

// failureAlertThreshold is how many failures within failureWindow trigger
// a warning log. The attempt log is the foundation for real lockout later.
const (
	failureAlertThreshold = 5
	failureWindow         = 15 * time.Minute
)

// AttemptStore is the persistence needed by the recorder
type AttemptStore interface {
	Insert(ctx context.Context, attempt Attempt) error
	CountRecentFailures(ctx context.Context, email string, window time.Duration) (int, error)
}

// Recorder appends login attempts. Recording is best-effort: a storage
// failure is logged and swallowed so it never fails the login itself.
type Recorder struct {
	store  AttemptStore
	logger *logging.Logger
}

func NewRecorder(store AttemptStore, logger *logging.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record appends one attempt and, on failure, checks whether the email is
// seeing a burst of bad logins worth flagging.
func (r *Recorder) Record(ctx context.Context, attempt Attempt) {
	if err := r.store.Insert(ctx, attempt); err != nil {
		r.logger.Warn("failed to record login attempt",
			"email", attempt.Email,
			"success", attempt.Success,
			"error", err.Error(),
		)
		return
	}

	if attempt.Success {
		return
	}

	failures, err := r.store.CountRecentFailures(ctx, attempt.Email, failureWindow)
	if err != nil {
		r.logger.Warn("failed to count recent login failures", "email", attempt.Email, "error", err.Error())
		return
	}
	if failures >= failureAlertThreshold {
		r.logger.Warn("repeated login failures detected",
			"email", attempt.Email,
			"failures", failures,
			"window_minutes", int(failureWindow.Minutes()),
		)
	}
}
