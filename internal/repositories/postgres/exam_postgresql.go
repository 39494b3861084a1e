package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return translateError(e.db.WithContext(ctx).Omit(clause.Associations).Create(exam).Error)
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		if err := e.db.WithContext(ctx).First(&dbExam, id).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamWithQuestionsKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		err := e.db.WithContext(ctx).
			Preload("ExamQuestions", func(db *gorm.DB) *gorm.DB {
				return db.Order("exam_questions.position ASC")
			}).
			Preload("ExamQuestions.Question").
			First(&dbExam, id).Error
		if err != nil {
			return nil, translateError(err)
		}

		dbExam.Questions = make([]models.Question, 0, len(dbExam.ExamQuestions))
		for _, eq := range dbExam.ExamQuestions {
			dbExam.Questions = append(dbExam.Questions, eq.Question)
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Omit(clause.Associations).Save(exam).Error; err != nil {
		return translateError(err)
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID)
	return nil
}

func (e *ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Exam{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, id)
	return nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Exam{})
	query = e.helpers.ApplyExamFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "scheduled_time"
	}
	query = e.helpers.ApplyPaginationAndSort(query, "exams", sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) ReplaceQuestions(ctx context.Context, examID uint, questionIDs []uint) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		if len(questionIDs) == 0 {
			return nil
		}

		rows := make([]models.ExamQuestion, len(questionIDs))
		for i, qid := range questionIDs {
			rows[i] = models.ExamQuestion{ExamID: examID, QuestionID: qid, Position: i + 1}
		}
		return tx.Omit("Question").CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return translateError(err)
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, examID)
	return nil
}

func (e *ExamPostgreSQL) CountQuestions(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, err
}

func (e *ExamPostgreSQL) CountQuestionsByExams(ctx context.Context, examIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(examIDs))
	if len(examIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ExamID uint
		Count  int64
	}
	err := e.db.WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Select("exam_id, COUNT(*) AS count").
		Where("exam_id IN ?", examIDs).
		Group("exam_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count exam questions: %w", err)
	}

	for _, r := range rows {
		counts[r.ExamID] = r.Count
	}
	return counts, nil
}
