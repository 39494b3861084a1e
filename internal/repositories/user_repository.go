package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// UserRepository interface for user profile and quota operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// FirstOrCreate provisions a local record for an identity seen for the first time
	FirstOrCreate(ctx context.Context, user *models.User) (*models.User, error)
	// UpdateProfile writes profile fields only; quota and subscription columns are untouched
	UpdateProfile(ctx context.Context, user *models.User) error

	// ResetWeeklyQuota sets the counter to 0 and the reset time to now
	ResetWeeklyQuota(ctx context.Context, id string, now time.Time) error
	// IncrementWeeklyAttempts adds one attempt; for non-premium users only while below limit.
	// Returns ErrStateConflict when the limit was already reached.
	IncrementWeeklyAttempts(ctx context.Context, id string, limit int, premium bool) error

	UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, expiry *time.Time) error

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}
