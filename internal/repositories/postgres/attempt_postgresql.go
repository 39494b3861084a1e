package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// AttemptPostgreSQL never caches attempts themselves: the state guards must read the
// latest row. Only the per-user aggregate stats go through the cache.
type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	return translateError(a.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error)
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByUserAndExam(ctx context.Context, userID string, examID uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	var attempts []*models.ExamAttempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.ExamAttempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, "exam_attempts", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

// activeAttempt scopes an update to a started, unpaused, unsubmitted attempt
func (a *AttemptPostgreSQL) activeAttempt(ctx context.Context, id uint) *gorm.DB {
	return a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND is_completed = ? AND is_paused = ?", id, false, false)
}

func (a *AttemptPostgreSQL) SaveAnswers(ctx context.Context, id uint, answers []models.AttemptAnswer) error {
	return requireAffected(a.activeAttempt(ctx, id).
		Update("answers", datatypes.NewJSONSlice(answers)))
}

func (a *AttemptPostgreSQL) Pause(ctx context.Context, id uint, answers []models.AttemptAnswer, pausedAt time.Time) error {
	updates := map[string]interface{}{
		"is_paused": true,
		"paused_at": pausedAt,
	}
	if answers != nil {
		updates["answers"] = datatypes.NewJSONSlice(answers)
	}
	return requireAffected(a.activeAttempt(ctx, id).Updates(updates))
}

func (a *AttemptPostgreSQL) Resume(ctx context.Context, id uint, pausedSeconds int64, resumedAt time.Time) error {
	return requireAffected(a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND is_completed = ? AND is_paused = ?", id, false, true).
		Updates(map[string]interface{}{
			"is_paused":       false,
			"paused_at":       nil,
			"last_resumed_at": resumedAt,
			"paused_duration": gorm.Expr("paused_duration + ?", pausedSeconds),
		}))
}

func (a *AttemptPostgreSQL) Complete(ctx context.Context, attempt *models.ExamAttempt) error {
	err := requireAffected(a.activeAttempt(ctx, attempt.ID).
		Updates(map[string]interface{}{
			"answers":           attempt.Answers,
			"total_score":       attempt.TotalScore,
			"correct_answers":   attempt.CorrectAnswers,
			"incorrect_answers": attempt.IncorrectAnswers,
			"unattempted":       attempt.Unattempted,
			"percentage":        attempt.Percentage,
			"end_time":          attempt.EndTime,
			"time_taken":        attempt.TimeTaken,
			"is_completed":      true,
		}))
	if err != nil {
		return err
	}
	cache.InvalidateUserStatsCache(ctx, a.cacheManager, attempt.UserID)
	return nil
}

func (a *AttemptPostgreSQL) GetUserStats(ctx context.Context, userID string) (*repositories.UserAttemptStats, error) {
	var stats repositories.UserAttemptStats
	err := a.cacheManager.Stats.CacheOrExecute(ctx, cache.UserStatsKey(userID), &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var dbStats repositories.UserAttemptStats
		err := a.db.WithContext(ctx).
			Model(&models.ExamAttempt{}).
			Select("COUNT(*) AS total_attempts, COALESCE(AVG(percentage), 0) AS average_score, COALESCE(MAX(percentage), 0) AS best_percentage").
			Where("user_id = ? AND is_completed = ?", userID, true).
			Scan(&dbStats).Error
		if err != nil {
			return nil, err
		}
		return &dbStats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt stats: %w", err)
	}
	return &stats, nil
}
