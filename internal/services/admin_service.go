package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/integrations"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const (
	defaultDraftLeadTime = 24 * time.Hour
	maxImportRows        = 1000
	defaultAdminPageSize = 20
)

type adminService struct {
	repo      repositories.Repository
	generator integrations.QuestionGenerator
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewAdminService(repo repositories.Repository, generator integrations.QuestionGenerator, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) AdminService {
	return &adminService{
		repo:      repo,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== QUESTIONS =====

func (s *adminService) CreateQuestion(ctx context.Context, req *QuestionCreateRequest, adminID string) (*models.Question, error) {
	question, err := s.buildQuestion(req, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.InfoContext(ctx, "Question created",
		"question_id", question.ID,
		"category", question.Category,
		"subject", question.Subject,
		"created_by", adminID)

	return question, nil
}

func (s *adminService) ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultAdminPageSize
	}
	questions, total, err := s.repo.Question().List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (s *adminService) UpdateQuestion(ctx context.Context, id uint, req *QuestionUpdateRequest) (*models.Question, error) {
	if req.CorrectAnswer != nil {
		label := normalizeOptionLabel(*req.CorrectAnswer)
		req.CorrectAnswer = &label
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	applyQuestionUpdate(question, req)

	if err := s.validateQuestionContent(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.InfoContext(ctx, "Question updated", "question_id", id)
	return question, nil
}

// DeleteQuestion refuses to remove a question referenced by any exam
func (s *adminService) DeleteQuestion(ctx context.Context, id uint) error {
	used, err := s.repo.Question().IsUsedInExams(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check question usage: %w", err)
	}
	if used {
		return NewBusinessRuleError("question_in_use",
			"question is used in one or more exams",
			map[string]interface{}{"question_id": id})
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.InfoContext(ctx, "Question deleted", "question_id", id)
	return nil
}

// DeleteQuestions deletes every question not used by an exam and reports the rest
func (s *adminService) DeleteQuestions(ctx context.Context, ids []uint) (*models.BulkOperationResult, error) {
	if err := s.validator.Validate(&models.BulkDeleteRequest{QuestionIDs: ids}); err != nil {
		return nil, err
	}

	result := &models.BulkOperationResult{}
	deletable := make([]uint, 0, len(ids))
	for _, id := range ids {
		used, err := s.repo.Question().IsUsedInExams(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check question usage: %w", err)
		}
		if used {
			result.FailureCount++
			result.Errors = append(result.Errors, models.BulkOperationError{ID: id, Error: "question is used in one or more exams"})
			continue
		}
		deletable = append(deletable, id)
	}

	deleted, err := s.repo.Question().DeleteBatch(ctx, deletable)
	if err != nil {
		return nil, fmt.Errorf("failed to delete questions: %w", err)
	}
	result.SuccessCount = int(deleted)
	if missing := len(deletable) - int(deleted); missing > 0 {
		result.FailureCount += missing
	}

	s.logger.InfoContext(ctx, "Questions deleted",
		"requested", len(ids),
		"deleted", deleted)

	return result, nil
}

// ImportQuestions creates one question per valid workbook row. Invalid rows are
// reported by row number and do not block the others.
func (s *adminService) ImportQuestions(ctx context.Context, r io.Reader, adminID string) (*models.BulkOperationResult, error) {
	rows, err := readQuestionRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) > maxImportRows {
		return nil, NewBusinessRuleError("import_size",
			fmt.Sprintf("at most %d questions can be imported at once", maxImportRows),
			map[string]interface{}{"rows": len(rows)})
	}

	result := &models.BulkOperationResult{}
	questions := make([]*models.Question, 0, len(rows))
	for i := range rows {
		q, err := s.buildQuestion(&rows[i].req, adminID)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, models.BulkOperationError{Row: rows[i].number, Error: err.Error()})
			continue
		}
		questions = append(questions, q)
	}

	if err := s.repo.Question().CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to import questions: %w", err)
	}
	result.SuccessCount = len(questions)

	s.logger.InfoContext(ctx, "Questions imported",
		"created", result.SuccessCount,
		"rejected", result.FailureCount,
		"created_by", adminID)

	return result, nil
}

// ListSubjectTopics groups the subject/topic pairs in use, most used subjects first
func (s *adminService) ListSubjectTopics(ctx context.Context, category *models.ExamCategory) ([]*SubjectTopics, error) {
	usage, err := s.repo.Question().ListSubjectTopics(ctx, category)
	if err != nil {
		return nil, err
	}

	type key struct {
		category models.ExamCategory
		subject  string
	}
	index := make(map[key]*SubjectTopics)
	out := make([]*SubjectTopics, 0)
	for _, u := range usage {
		k := key{u.Category, u.Subject}
		entry, ok := index[k]
		if !ok {
			entry = &SubjectTopics{Subject: u.Subject, Category: u.Category, Topics: []string{}}
			index[k] = entry
			out = append(out, entry)
		}
		if u.Topic != "" {
			entry.Topics = append(entry.Topics, u.Topic)
		}
	}
	for _, e := range out {
		sort.Strings(e.Topics)
	}
	return out, nil
}

// ===== AI GENERATION =====

func (s *adminService) GenerateQuestions(ctx context.Context, req *GenerateQuestionsRequest) ([]*GeneratedQuestionPreview, error) {
	if s.generator == nil || !s.generator.Configured() {
		return nil, ErrGeneratorNotConfigured
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = models.LanguageEnglish
	}

	generated, err := s.generator.Generate(ctx, integrations.GenerateQuestionsRequest{
		ExamType:   req.ExamType,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		Language:   language,
	})
	if err != nil {
		if errors.Is(err, integrations.ErrGeneratorNotConfigured) {
			return nil, ErrGeneratorNotConfigured
		}
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	previews := make([]*GeneratedQuestionPreview, len(generated))
	for i, q := range generated {
		previews[i] = &GeneratedQuestionPreview{
			GeneratedQuestion: q,
			Category:          req.ExamType,
			Difficulty:        req.Difficulty,
			Language:          language,
			IsAIGenerated:     true,
		}
	}

	s.logger.InfoContext(ctx, "Questions generated",
		"category", req.ExamType,
		"subject", req.Subject,
		"requested", req.Count,
		"generated", len(previews))

	return previews, nil
}

// SaveAIQuestions stores reviewed generated questions; all are saved or none
func (s *adminService) SaveAIQuestions(ctx context.Context, req *SaveAIQuestionsRequest, adminID string) ([]*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	questions := make([]*models.Question, 0, len(req.Questions))
	var verrs ValidationErrors
	for i := range req.Questions {
		q, err := s.buildQuestion(&req.Questions[i], adminID)
		if err != nil {
			var ve ValidationErrors
			if errors.As(err, &ve) {
				for _, e := range ve {
					e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
					verrs = append(verrs, e)
				}
				continue
			}
			return nil, err
		}
		q.IsAIGenerated = true
		questions = append(questions, q)
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	if err := s.repo.Question().CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to save questions: %w", err)
	}

	s.logger.InfoContext(ctx, "AI questions saved",
		"count", len(questions),
		"created_by", adminID)

	return questions, nil
}

// ===== EXAMS =====

// CreateExam stores an exam with manually chosen or randomly drawn questions.
// A draft without a schedule starts a day later; a scheduled exam starts now.
func (s *adminService) CreateExam(ctx context.Context, req *ExamCreateRequest, adminID string) (*ExamAdminResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	selection := req.SelectionMethod
	if selection == "" {
		selection = SelectionManual
	}
	if verrs := s.validator.GetBusinessValidator().ValidateExamSelection(selection, req.QuestionIDs); len(verrs) > 0 {
		return nil, verrs
	}

	language := req.Language
	if language == "" {
		language = models.LanguageEnglish
	}

	var (
		questionIDs []uint
		err         error
	)
	if selection == SelectionAuto {
		questionIDs, err = s.drawQuestions(ctx, req.Category, req.Subjects, language, req.QuestionCount)
	} else {
		questionIDs, err = s.checkQuestionsExist(ctx, req.QuestionIDs)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	exam := &models.Exam{
		Title:     req.Title,
		Category:  req.Category,
		Duration:  req.Duration,
		Language:  language,
		Status:    models.ExamStatusDraft,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: adminID,
	}
	if req.Status == models.ExamStatusScheduled {
		exam.Status = models.ExamStatusScheduled
		exam.ScheduledTime = now
	} else if req.ScheduledTime != nil {
		exam.ScheduledTime = req.ScheduledTime.UTC()
	} else {
		exam.ScheduledTime = now.Add(defaultDraftLeadTime)
	}
	if err := checkExpiry(exam); err != nil {
		return nil, err
	}
	if exam.TotalMarks, err = s.resolveTotalMarks(ctx, questionIDs, req.TotalMarks); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Exam().Create(ctx, exam); err != nil {
			return err
		}
		return tx.Exam().ReplaceQuestions(ctx, exam.ID, questionIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam created",
		"exam_id", exam.ID,
		"category", exam.Category,
		"status", exam.Status,
		"selection", selection,
		"questions", len(questionIDs),
		"created_by", adminID)

	if exam.Status == models.ExamStatusScheduled {
		s.publishExam(ctx, exam, adminID)
	}

	return &ExamAdminResponse{Exam: exam, SelectedQuestions: len(questionIDs)}, nil
}

func (s *adminService) ListExams(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultAdminPageSize
	}
	if filters.SortBy == "" {
		filters.SortBy = "created_at"
	}
	return s.repo.Exam().List(ctx, filters)
}

// UpdateExam edits a draft exam; published exams are frozen
func (s *adminService) UpdateExam(ctx context.Context, id uint, req *ExamUpdateRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.loadDraftExam(ctx, id, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Category != nil {
		exam.Category = *req.Category
	}
	if req.ScheduledTime != nil {
		exam.ScheduledTime = req.ScheduledTime.UTC()
	}
	if req.ExpiresAt != nil {
		expires := req.ExpiresAt.UTC()
		exam.ExpiresAt = &expires
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.Language != nil {
		exam.Language = *req.Language
	}
	if err := checkExpiry(exam); err != nil {
		return nil, err
	}

	var questionIDs []uint
	if req.QuestionIDs != nil {
		if verrs := s.validator.GetBusinessValidator().ValidateExamSelection(SelectionManual, req.QuestionIDs); len(verrs) > 0 {
			return nil, verrs
		}
		if questionIDs, err = s.checkQuestionsExist(ctx, req.QuestionIDs); err != nil {
			return nil, err
		}
	}

	switch {
	case req.TotalMarks != nil:
		exam.TotalMarks = *req.TotalMarks
	case questionIDs != nil:
		if exam.TotalMarks, err = s.resolveTotalMarks(ctx, questionIDs, nil); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if questionIDs != nil {
			if err := tx.Exam().ReplaceQuestions(ctx, exam.ID, questionIDs); err != nil {
				return err
			}
		}
		return tx.Exam().Update(ctx, exam)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam updated", "exam_id", id)
	return exam, nil
}

// PublishExam moves a draft with at least one question to scheduled
func (s *adminService) PublishExam(ctx context.Context, id uint, adminID string) (*models.Exam, error) {
	exam, err := s.loadDraftExam(ctx, id, "publish")
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Exam().CountQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	if count == 0 {
		return nil, NewBusinessRuleError("exam_has_questions",
			"exam must have at least one question to be published",
			map[string]interface{}{"exam_id": id})
	}

	exam.Status = models.ExamStatusScheduled
	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to publish exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam published",
		"exam_id", id,
		"scheduled_time", exam.ScheduledTime,
		"published_by", adminID)

	s.publishExam(ctx, exam, adminID)
	return exam, nil
}

func (s *adminService) DeleteExam(ctx context.Context, id uint) error {
	if _, err := s.loadDraftExam(ctx, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Exam().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam deleted", "exam_id", id)
	return nil
}

// ===== USERS =====

func (s *adminService) ListUsers(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultAdminPageSize
	}
	return s.repo.User().List(ctx, filters)
}

// UpgradeSubscription grants premium for the plan period, extending an unexpired one
func (s *adminService) UpgradeSubscription(ctx context.Context, userID string, req *SubscriptionUpgradeRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := s.now()
	from := now
	if user.IsPremium(now) && user.SubscriptionExpiry != nil {
		from = *user.SubscriptionExpiry
	}

	months := 1
	if req.Plan == "yearly" {
		months = 12
	}
	expiry := from.AddDate(0, months, 0)

	if err := s.repo.User().UpdateSubscription(ctx, userID, models.SubscriptionPremium, &expiry); err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, repositories.ErrStateConflict) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	user.SubscriptionStatus = models.SubscriptionPremium
	user.SubscriptionExpiry = &expiry

	s.logger.InfoContext(ctx, "Subscription upgraded",
		"user_id", userID,
		"plan", req.Plan,
		"expires_at", expiry)

	return user, nil
}
