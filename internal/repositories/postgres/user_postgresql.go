package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type UserPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) FirstOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	var out models.User
	err := u.db.WithContext(ctx).
		Where(models.User{ID: user.ID}).
		Attrs(*user).
		FirstOrCreate(&out).Error
	if err != nil {
		// Two first requests of the same identity can race on the insert
		if repositories.IsDuplicateError(translateError(err)) {
			return u.GetByID(ctx, user.ID)
		}
		return nil, translateError(err)
	}
	return &out, nil
}

func (u *UserPostgreSQL) UpdateProfile(ctx context.Context, user *models.User) error {
	return requireAffected(u.db.WithContext(ctx).
		Model(&models.User{ID: user.ID}).
		Select("name", "email", "exam_preparations", "preferred_language").
		Updates(user))
}

func (u *UserPostgreSQL) ResetWeeklyQuota(ctx context.Context, id string, now time.Time) error {
	return requireAffected(u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"weekly_exams_attempted": 0,
			"last_week_reset":        now,
		}))
}

func (u *UserPostgreSQL) IncrementWeeklyAttempts(ctx context.Context, id string, limit int, premium bool) error {
	query := u.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
	if !premium {
		query = query.Where("weekly_exams_attempted < ?", limit)
	}
	return requireAffected(query.Update("weekly_exams_attempted", gorm.Expr("weekly_exams_attempted + 1")))
}

func (u *UserPostgreSQL) UpdateSubscription(ctx context.Context, id string, status models.SubscriptionStatus, expiry *time.Time) error {
	return requireAffected(u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"subscription_expiry": expiry,
		}))
}

func (u *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := u.db.WithContext(ctx).Model(&models.User{})
	query = u.helpers.ApplyUserFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = u.helpers.ApplyPaginationAndSort(query, "users", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}
