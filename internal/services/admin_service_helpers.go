package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// buildQuestion validates a create request and fills in the defaults
func (s *adminService) buildQuestion(req *QuestionCreateRequest, adminID string) (*models.Question, error) {
	req.CorrectAnswer = normalizeOptionLabel(req.CorrectAnswer)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question := &models.Question{
		QuestionText:      strings.TrimSpace(req.QuestionText),
		QuestionTextHindi: req.QuestionTextHindi,
		Options:           []models.QuestionOption(req.Options),
		CorrectAnswer:     req.CorrectAnswer,
		Explanation:       req.Explanation,
		ExplanationHindi:  req.ExplanationHindi,
		Category:          req.Category,
		Subject:           strings.TrimSpace(req.Subject),
		Topic:             req.Topic,
		Marks:             1,
		Difficulty:        req.Difficulty,
		Language:          req.Language,
		QuestionImage:     req.QuestionImage,
		CreatedBy:         adminID,
	}
	if len(req.OptionsHindi) > 0 {
		question.OptionsHindi = []models.QuestionOption(req.OptionsHindi)
	}
	if req.Marks != nil && *req.Marks > 0 {
		question.Marks = *req.Marks
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if question.Language == "" {
		question.Language = models.LanguageEnglish
	}

	if err := s.validateQuestionContent(question); err != nil {
		return nil, err
	}
	return question, nil
}

// validateQuestionContent checks the option sets, which struct tags cannot express
func (s *adminService) validateQuestionContent(q *models.Question) error {
	bv := s.validator.GetBusinessValidator()

	verrs := bv.ValidateOptions("options", q.Options)
	if len(q.OptionsHindi) > 0 {
		verrs = append(verrs, bv.ValidateOptions("optionsHindi", q.OptionsHindi)...)
	}
	if !models.IsOptionLabel(q.CorrectAnswer) {
		verrs = append(verrs, ValidationError{
			Field:   "correctAnswer",
			Message: "must be one of A, B, C, D",
			Value:   q.CorrectAnswer,
			Rule:    "option_label",
		})
	}

	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// normalizeOptionLabel lets admins type a, b, c or d
func normalizeOptionLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

func applyQuestionUpdate(q *models.Question, req *QuestionUpdateRequest) {
	if req.QuestionText != nil {
		q.QuestionText = strings.TrimSpace(*req.QuestionText)
	}
	if req.QuestionTextHindi != nil {
		q.QuestionTextHindi = req.QuestionTextHindi
	}
	if req.Options != nil {
		q.Options = []models.QuestionOption(req.Options)
	}
	if req.OptionsHindi != nil {
		q.OptionsHindi = []models.QuestionOption(req.OptionsHindi)
	}
	if req.CorrectAnswer != nil {
		q.CorrectAnswer = *req.CorrectAnswer
	}
	if req.Explanation != nil {
		q.Explanation = req.Explanation
	}
	if req.ExplanationHindi != nil {
		q.ExplanationHindi = req.ExplanationHindi
	}
	if req.Category != nil {
		q.Category = *req.Category
	}
	if req.Subject != nil {
		q.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Topic != nil {
		q.Topic = req.Topic
	}
	if req.Marks != nil && *req.Marks > 0 {
		q.Marks = *req.Marks
	}
	if req.Difficulty != nil {
		q.Difficulty = *req.Difficulty
	}
	if req.Language != nil {
		q.Language = *req.Language
	}
	if req.QuestionImage != nil {
		q.QuestionImage = req.QuestionImage
	}
}

// checkQuestionsExist returns ids unchanged when every one of them is a stored question
func (s *adminService) checkQuestionsExist(ctx context.Context, ids []uint) ([]uint, error) {
	found, err := s.repo.Question().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) == len(ids) {
		return ids, nil
	}

	present := make(map[uint]struct{}, len(found))
	for _, q := range found {
		present[q.ID] = struct{}{}
	}
	var verrs ValidationErrors
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			verrs = append(verrs, ValidationError{
				Field:   "questions",
				Message: "references a question that does not exist",
				Value:   id,
				Rule:    "business_logic",
			})
		}
	}
	return nil, verrs
}

// drawQuestions picks random questions of the category, optionally limited to subjects,
// in the exam language or bilingual.
func (s *adminService) drawQuestions(ctx context.Context, category models.ExamCategory, subjects []string, language models.Language, count int) ([]uint, error) {
	if count <= 0 {
		count = DefaultAutoQuestionCount
	}

	filters := repositories.QuestionFilters{
		Category: &category,
		Subjects: subjects,
		Language: &language,
	}
	ids, err := s.repo.Question().GetRandomIDs(ctx, filters, count)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, NewBusinessRuleError("exam_has_questions",
			"no questions match the selected category and subjects",
			map[string]interface{}{"category": category, "subjects": subjects})
	}
	return ids, nil
}

// resolveTotalMarks is the override when given, else the sum of the questions' marks
func (s *adminService) resolveTotalMarks(ctx context.Context, questionIDs []uint, override *float64) (float64, error) {
	if override != nil {
		return *override, nil
	}

	questions, err := s.repo.Question().GetByIDs(ctx, questionIDs)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, q := range questions {
		total += q.EffectiveMarks()
	}
	return total, nil
}

func (s *adminService) loadDraftExam(ctx context.Context, id uint, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.Status != models.ExamStatusDraft {
		return nil, NewBusinessRuleError("exam_is_draft",
			fmt.Sprintf("only draft exams can be %s", pastTense(action)),
			map[string]interface{}{"exam_id": id, "status": exam.Status})
	}
	return exam, nil
}

func checkExpiry(exam *models.Exam) error {
	if exam.ExpiresAt != nil && !exam.ExpiresAt.After(exam.ScheduledTime) {
		return ValidationErrors{{
			Field:   "expiresAt",
			Message: "must be after the scheduled time",
			Value:   exam.ExpiresAt,
			Rule:    "business_logic",
		}}
	}
	return nil
}

func pastTense(action string) string {
	if strings.HasSuffix(action, "e") {
		return action + "d"
	}
	return action + "ed"
}

func (s *adminService) publishExam(ctx context.Context, exam *models.Exam, adminID string) {
	if s.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventExamPublished, events.ExamEvent{
		ExamID:        exam.ID,
		Category:      string(exam.Category),
		ScheduledTime: exam.ScheduledTime,
		PublishedBy:   adminID,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", events.EventExamPublished,
			"exam_id", exam.ID,
			"error", err)
	}
}
