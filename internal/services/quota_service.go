package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const (
	FreeWeeklyExamLimit = 3
	QuotaResetDays      = 7
	UnlimitedQuota      = "Unlimited"
)

// QuotaTracker enforces the free tier weekly attempt limit. The window rolls from the
// user's last reset rather than following calendar weeks.
type QuotaTracker struct {
	limit  int
	logger *slog.Logger
}

func NewQuotaTracker(logger *slog.Logger) *QuotaTracker {
	return &QuotaTracker{limit: FreeWeeklyExamLimit, logger: logger}
}

func (q *QuotaTracker) Limit() int { return q.limit }

// daysSince counts whole days, floored
func daysSince(from, now time.Time) int64 {
	return int64(now.Sub(from) / (24 * time.Hour))
}

// CheckAndReset zeroes the counter once QuotaResetDays whole days have passed since
// the last reset. user is updated in place; nothing is written otherwise.
func (q *QuotaTracker) CheckAndReset(ctx context.Context, users repositories.UserRepository, user *models.User, now time.Time) error {
	if daysSince(user.LastWeekReset, now) < QuotaResetDays {
		return nil
	}

	if err := users.ResetWeeklyQuota(ctx, user.ID, now); err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, repositories.ErrStateConflict) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reset weekly quota: %w", err)
	}

	q.logger.InfoContext(ctx, "Weekly quota reset",
		"user_id", user.ID,
		"previous_count", user.WeeklyExamsAttempted)

	user.WeeklyExamsAttempted = 0
	user.LastWeekReset = now
	return nil
}

func (q *QuotaTracker) CanAttempt(user *models.User, now time.Time) bool {
	return user.IsPremium(now) || user.WeeklyExamsAttempted < q.limit
}

// Increment adds one attempt with a conditional update, so two concurrent first starts
// cannot both slip under the limit.
func (q *QuotaTracker) Increment(ctx context.Context, users repositories.UserRepository, user *models.User, now time.Time) error {
	err := users.IncrementWeeklyAttempts(ctx, user.ID, q.limit, user.IsPremium(now))
	if err != nil {
		if errors.Is(err, repositories.ErrStateConflict) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("failed to increment weekly quota: %w", err)
	}
	user.WeeklyExamsAttempted++
	return nil
}

// Remaining is "Unlimited" for premium users, otherwise the attempts left this window
func (q *QuotaTracker) Remaining(user *models.User, now time.Time) interface{} {
	if user.IsPremium(now) {
		return UnlimitedQuota
	}
	if left := q.limit - user.WeeklyExamsAttempted; left > 0 {
		return left
	}
	return 0
}

func (q *QuotaTracker) Status(user *models.User, now time.Time) *QuotaStatus {
	status := &QuotaStatus{
		Used:               user.WeeklyExamsAttempted,
		Remaining:          q.Remaining(user, now),
		ResetsAt:           user.LastWeekReset.Add(QuotaResetDays * 24 * time.Hour),
		SubscriptionStatus: user.SubscriptionStatus,
	}
	if user.IsPremium(now) {
		status.Limit = UnlimitedQuota
	} else {
		status.Limit = q.limit
	}
	return status
}
