package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// SharedHelpers contains query building shared by the postgres repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyExamFilters translates ExamFilters into WHERE clauses
func (h *SharedHelpers) ApplyExamFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if len(filters.Categories) > 0 {
		query = query.Where("exams.category IN ?", filters.Categories)
	}
	if len(filters.Statuses) > 0 {
		query = query.Where("exams.status IN ?", filters.Statuses)
	}
	if filters.ScheduledBefore != nil {
		query = query.Where("exams.scheduled_time <= ?", *filters.ScheduledBefore)
	}
	if filters.NotExpiredAt != nil {
		query = query.Where("exams.expires_at IS NULL OR exams.expires_at >= ?", *filters.NotExpiredAt)
	}
	if filters.CreatedBy != nil {
		query = query.Where("exams.created_by = ?", *filters.CreatedBy)
	}
	return query
}

// ApplyQuestionFilters translates QuestionFilters into WHERE clauses
func (h *SharedHelpers) ApplyQuestionFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if len(filters.Subjects) > 0 {
		query = query.Where("subject IN ?", filters.Subjects)
	}
	if filters.Topic != nil {
		query = query.Where("topic = ?", *filters.Topic)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Language != nil && *filters.Language != models.LanguageBoth {
		query = query.Where("language IN ?", []models.Language{*filters.Language, models.LanguageBoth})
	}
	if filters.IsAIGenerated != nil {
		query = query.Where("is_ai_generated = ?", *filters.IsAIGenerated)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("question_text ILIKE ? OR subject ILIKE ? OR topic ILIKE ?", like, like, like)
	}
	return query
}

// ApplyAttemptFilters translates AttemptFilters into WHERE clauses
func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("exam_attempts.user_id = ?", *filters.UserID)
	}
	if len(filters.ExamIDs) > 0 {
		query = query.Where("exam_attempts.exam_id IN ?", filters.ExamIDs)
	}
	if filters.Category != nil {
		query = query.Joins("JOIN exams ON exams.id = exam_attempts.exam_id").
			Where("exams.category = ?", *filters.Category)
	}
	if filters.IsCompleted != nil {
		query = query.Where("exam_attempts.is_completed = ?", *filters.IsCompleted)
	}
	if filters.DateFrom != nil {
		query = query.Where("exam_attempts.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("exam_attempts.created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyUserFilters translates UserFilters into WHERE clauses
func (h *SharedHelpers) ApplyUserFilters(query *gorm.DB, filters repositories.UserFilters) *gorm.DB {
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.SubscriptionStatus != nil {
		query = query.Where("subscription_status = ?", *filters.SubscriptionStatus)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ?", like, like)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, table, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"id":             true,
		"title":          true,
		"status":         true,
		"difficulty":     true,
		"subject":        true,
		"scheduled_time": true,
		"percentage":     true,
		"end_time":       true,
		"name":           true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s.%s %s", table, sortBy, sortOrder))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// translateError maps driver errors onto the repository error set
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", repositories.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repositories.ErrDuplicate, err)
	default:
		return err
	}
}

// requireAffected turns a zero-row conditional update into ErrStateConflict
func requireAffected(result *gorm.DB) error {
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrStateConflict
	}
	return nil
}
