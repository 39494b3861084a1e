package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return translateError(q.db.WithContext(ctx).Create(question).Error)
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return translateError(q.db.WithContext(ctx).CreateInBatches(questions, 100).Error)
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := q.db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// GetByIDs returns the questions found, in no particular order
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Save(question).Error; err != nil {
		return translateError(err)
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID)
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := q.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, id)
	return nil
}

func (q *QuestionPostgreSQL) DeleteBatch(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := q.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Question{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	for _, id := range ids {
		cache.SafeDelete(ctx, q.cacheManager.Question, cache.QuestionKey(id))
	}
	return result.RowsAffected, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, "questions", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

func (q *QuestionPostgreSQL) GetRandomIDs(ctx context.Context, filters repositories.QuestionFilters, count int) ([]uint, error) {
	var ids []uint
	query := q.db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	if err := query.Order("RANDOM()").Limit(count).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to pick random questions: %w", err)
	}
	return ids, nil
}

func (q *QuestionPostgreSQL) IsUsedInExams(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("question_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (q *QuestionPostgreSQL) ListSubjectTopics(ctx context.Context, category *models.ExamCategory) ([]repositories.SubjectTopicUsage, error) {
	var rows []repositories.SubjectTopicUsage
	query := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("category, subject, COALESCE(topic, '') AS topic, COUNT(*) AS count")
	if category != nil {
		query = query.Where("category = ?", *category)
	}

	err := query.
		Group("category, subject, COALESCE(topic, '')").
		Order("count DESC, subject ASC").
		Limit(1000).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return rows, nil
}
