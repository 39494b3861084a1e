package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// QuestionRepository interface for question bank operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	DeleteBatch(ctx context.Context, ids []uint) (int64, error)

	// List and search operations
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)

	// GetRandomIDs picks up to count question ids matching filters in random order
	GetRandomIDs(ctx context.Context, filters QuestionFilters, count int) ([]uint, error)

	// IsUsedInExams reports whether any exam references the question
	IsUsedInExams(ctx context.Context, id uint) (bool, error)

	// ListSubjectTopics returns distinct subject/topic pairs, most used first
	ListSubjectTopics(ctx context.Context, category *models.ExamCategory) ([]SubjectTopicUsage, error)
}
