package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const defaultAvailableExamsLimit = 50

type examService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewExamService(repo repositories.Repository, logger *slog.Logger) ExamService {
	return &examService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailable returns the exams of the user's preparation categories that have
// started and not expired, newest first, annotated with the user's attempt on each.
func (s *examService) ListAvailable(ctx context.Context, userID string, limit int) ([]*ExamListItem, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	items := []*ExamListItem{}
	if len(user.ExamPreparations) == 0 {
		return items, nil
	}

	if limit <= 0 {
		limit = defaultAvailableExamsLimit
	}

	now := s.now()
	exams, _, err := s.repo.Exam().List(ctx, repositories.ExamFilters{
		Categories:      user.ExamPreparations,
		Statuses:        []models.ExamStatus{models.ExamStatusScheduled, models.ExamStatusActive},
		ScheduledBefore: &now,
		NotExpiredAt:    &now,
		Limit:           limit,
		SortBy:          "scheduled_time",
		SortOrder:       "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	if len(exams) == 0 {
		return items, nil
	}

	examIDs := make([]uint, len(exams))
	for i, e := range exams {
		examIDs[i] = e.ID
	}

	attemptsByExam, err := s.attemptsByExam(ctx, userID, examIDs)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.Exam().CountQuestionsByExams(ctx, examIDs)
	if err != nil {
		return nil, err
	}

	for _, exam := range exams {
		status := DeriveExamStatus(exam, now)
		if status != models.ExamStatusActive {
			continue
		}

		item := &ExamListItem{
			Exam:          exam,
			Status:        status,
			QuestionCount: counts[exam.ID],
		}
		if a, ok := attemptsByExam[exam.ID]; ok {
			id := a.ID
			item.AttemptID = &id
			item.IsAttempted = a.IsCompleted
			item.IsPaused = a.IsPaused && !a.IsCompleted
		}
		items = append(items, item)
	}

	s.logger.DebugContext(ctx, "Listed available exams",
		"user_id", userID,
		"count", len(items))

	return items, nil
}

// GetDetails returns the exam with its derived status and the caller's attempt state.
// Questions are included without answers when requested.
func (s *examService) GetDetails(ctx context.Context, examID uint, userID string, includeQuestions bool) (*ExamDetailsResponse, error) {
	var (
		exam *models.Exam
		err  error
	)
	if includeQuestions {
		exam, err = s.repo.Exam().GetByIDWithQuestions(ctx, examID)
	} else {
		exam, err = s.repo.Exam().GetByID(ctx, examID)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	resp := &ExamDetailsResponse{
		Exam:   exam,
		Status: DeriveExamStatus(exam, s.now()),
	}

	if includeQuestions {
		hidden := make([]models.Question, len(exam.Questions))
		for i, q := range exam.Questions {
			hidden[i] = q.WithoutAnswer()
		}
		exam.Questions = hidden
		resp.QuestionCount = int64(len(hidden))
	} else {
		if resp.QuestionCount, err = s.repo.Exam().CountQuestions(ctx, examID); err != nil {
			return nil, fmt.Errorf("failed to count questions: %w", err)
		}
	}

	attempt, err := s.repo.Attempt().GetByUserAndExam(ctx, userID, examID)
	switch {
	case err == nil:
		id := attempt.ID
		switch attempt.State() {
		case models.AttemptCompleted:
			resp.AttemptStatus.IsCompleted = true
			resp.AttemptStatus.CompletedAttemptID = &id
		case models.AttemptPaused:
			resp.AttemptStatus.IsPaused = true
			resp.AttemptStatus.PausedAttemptID = &id
		}
	case !repositories.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return resp, nil
}

func (s *examService) attemptsByExam(ctx context.Context, userID string, examIDs []uint) (map[uint]*models.ExamAttempt, error) {
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		UserID:  &userID,
		ExamIDs: examIDs,
		Limit:   len(examIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	byExam := make(map[uint]*models.ExamAttempt, len(attempts))
	for _, a := range attempts {
		byExam[a.ExamID] = a
	}
	return byExam, nil
}
