package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// ExamFilters is the predicate set for exam listings; nil/empty fields do not constrain
type ExamFilters struct {
	Categories      []models.ExamCategory `json:"categories"`
	Statuses        []models.ExamStatus   `json:"statuses"`
	ScheduledBefore *time.Time            `json:"scheduled_before"` // scheduled_time <= value
	NotExpiredAt    *time.Time            `json:"not_expired_at"`   // expires_at IS NULL OR expires_at >= value
	CreatedBy       *string               `json:"created_by"`
	Limit           int                   `json:"limit"`
	Offset          int                   `json:"offset"`
	SortBy          string                `json:"sort_by"`    // "scheduled_time", "created_at", "title"
	SortOrder       string                `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	Category      *models.ExamCategory    `json:"category"`
	Subjects      []string                `json:"subjects"`
	Topic         *string                 `json:"topic"`
	Difficulty    *models.DifficultyLevel `json:"difficulty"`
	Language      *models.Language        `json:"language"` // matches the language or Both
	IsAIGenerated *bool                   `json:"is_ai_generated"`
	Search        string                  `json:"search"`
	Limit         int                     `json:"limit"`
	Offset        int                     `json:"offset"`
	SortBy        string                  `json:"sort_by"`
	SortOrder     string                  `json:"sort_order"`
}

type AttemptFilters struct {
	UserID      *string              `json:"user_id"`
	ExamIDs     []uint               `json:"exam_ids"`
	Category    *models.ExamCategory `json:"category"` // joins exams
	IsCompleted *bool                `json:"is_completed"`
	DateFrom    *time.Time           `json:"date_from"`
	DateTo      *time.Time           `json:"date_to"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
	SortBy      string               `json:"sort_by"`    // "created_at", "percentage", "end_time"
	SortOrder   string               `json:"sort_order"` // "asc", "desc"
}

// ===== STATS =====

type UserFilters struct {
	Role               *models.UserRole           `json:"role"`
	SubscriptionStatus *models.SubscriptionStatus `json:"subscription_status"`
	Search             string                     `json:"search"` // name or phone
	Limit              int                        `json:"limit"`
	Offset             int                        `json:"offset"`
	SortBy             string                     `json:"sort_by"`
	SortOrder          string                     `json:"sort_order"`
}

type SubjectTopicUsage struct {
	Category models.ExamCategory `json:"category"`
	Subject  string              `json:"subject"`
	Topic    string              `json:"topic"`
	Count    int64               `json:"count"`
}

type UserAttemptStats struct {
	TotalAttempts  int64   `json:"totalAttempts"`
	AverageScore   float64 `json:"averageScore"`
	BestPercentage float64 `json:"bestPercentage"`
}

// ===== EXAM =====

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetByIDWithQuestions hydrates Exam.Questions in exam order
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)

	// ReplaceQuestions rewrites the ordered question set of an exam
	ReplaceQuestions(ctx context.Context, examID uint, questionIDs []uint) error
	CountQuestions(ctx context.Context, examID uint) (int64, error)
	CountQuestionsByExams(ctx context.Context, examIDs []uint) (map[uint]int64, error)
}

// ===== ATTEMPT =====

// AttemptRepository state-changing methods are conditional updates: when the stored
// attempt is not in the expected state they return ErrStateConflict and write nothing.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error)
	GetByUserAndExam(ctx context.Context, userID string, examID uint) (*models.ExamAttempt, error)
	List(ctx context.Context, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// SaveAnswers requires an active attempt
	SaveAnswers(ctx context.Context, id uint, answers []models.AttemptAnswer) error
	// Pause requires an active attempt; answers are written in the same statement when non-nil
	Pause(ctx context.Context, id uint, answers []models.AttemptAnswer, pausedAt time.Time) error
	// Resume requires a paused attempt
	Resume(ctx context.Context, id uint, pausedSeconds int64, resumedAt time.Time) error
	// Complete requires an active attempt and writes scores, answers and timing
	Complete(ctx context.Context, attempt *models.ExamAttempt) error

	GetUserStats(ctx context.Context, userID string) (*UserAttemptStats, error)
}
