package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	quota     *QuotaTracker
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, quota *QuotaTracker, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) AttemptService {
	return &attemptService{
		repo:      repo,
		quota:     quota,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start creates the user's attempt on first call, resumes it when paused, and returns
// it unchanged when already active.
func (s *attemptService) Start(ctx context.Context, examID uint, userID string) (*AttemptResponse, error) {
	s.logger.InfoContext(ctx, "Starting exam attempt",
		"exam_id", examID,
		"user_id", userID)

	now := s.now()

	exam, err := s.loadExamWithQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.findAttempt(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	if attempt != nil && attempt.IsCompleted {
		return nil, ErrAttemptAlreadyCompleted
	}

	if err := CheckAvailability(exam, user, now); err != nil {
		s.logger.InfoContext(ctx, "Exam not available",
			"exam_id", examID,
			"user_id", userID,
			"reason", err.Error())
		return nil, err
	}

	var created, resumed bool
	if attempt == nil {
		attempt, created, err = s.createAttempt(ctx, exam, user, now)
		if err != nil {
			return nil, err
		}
	}

	switch attempt.State() {
	case models.AttemptCompleted:
		return nil, ErrAttemptAlreadyCompleted
	case models.AttemptPaused:
		if attempt, err = s.resumeAttempt(ctx, attempt, now); err != nil {
			return nil, err
		}
		resumed = true
	}

	return &AttemptResponse{
		Attempt:   attempt,
		Exam:      exam,
		Created:   created,
		IsResumed: resumed,
	}, nil
}

// SaveAnswers replaces the whole answer list of an active attempt
func (s *attemptService) SaveAnswers(ctx context.Context, attemptID uint, userID string, req *SaveAnswersRequest) (*models.ExamAttempt, error) {
	s.logger.DebugContext(ctx, "Saving attempt answers",
		"attempt_id", attemptID,
		"user_id", userID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID, "save answers")
	if err != nil {
		return nil, err
	}

	switch attempt.State() {
	case models.AttemptCompleted:
		return nil, ErrAttemptAlreadySubmitted
	case models.AttemptPaused:
		return nil, ErrAttemptRequiresResume
	}

	answers, err := s.normalizeAnswers(ctx, attempt.ExamID, req.Answers)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Attempt().SaveAnswers(ctx, attempt.ID, answers); err != nil {
		return nil, s.classifyConflict(ctx, attempt.ID, err, ErrAttemptRequiresResume)
	}

	attempt.Answers = answers
	return attempt, nil
}

func (s *attemptService) Pause(ctx context.Context, attemptID uint, userID string, req *PauseAttemptRequest) (*models.ExamAttempt, error) {
	s.logger.InfoContext(ctx, "Pausing exam attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	if req == nil {
		req = &PauseAttemptRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID, "pause")
	if err != nil {
		return nil, err
	}

	switch attempt.State() {
	case models.AttemptCompleted:
		return nil, ErrAttemptAlreadySubmitted
	case models.AttemptPaused:
		return nil, ErrAttemptAlreadyPaused
	}

	// nil leaves the stored answers untouched
	var answers []models.AttemptAnswer
	if req.Answers != nil {
		if answers, err = s.normalizeAnswers(ctx, attempt.ExamID, req.Answers); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if err := s.repo.Attempt().Pause(ctx, attempt.ID, answers, now); err != nil {
		return nil, s.classifyConflict(ctx, attempt.ID, err, ErrAttemptAlreadyPaused)
	}

	if answers != nil {
		attempt.Answers = answers
	}
	attempt.IsPaused = true
	attempt.PausedAt = &now

	s.publish(ctx, events.EventAttemptPaused, events.AttemptEvent{
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
		UserID:    attempt.UserID,
	})

	s.logger.InfoContext(ctx, "Exam attempt paused", "attempt_id", attempt.ID)
	return attempt, nil
}

// Submit scores and completes an active attempt. The write only succeeds while the
// attempt is still active, so a concurrent second submit is reported, never re-scored.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, userID string) (*SubmitResult, error) {
	s.logger.InfoContext(ctx, "Submitting exam attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID, "submit")
	if err != nil {
		return nil, err
	}

	switch attempt.State() {
	case models.AttemptCompleted:
		return nil, ErrAttemptAlreadySubmitted
	case models.AttemptPaused:
		return nil, ErrAttemptRequiresResume
	}

	exam, err := s.loadExamWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	score := ScoreAttempt(exam.Questions, attempt.Answers, exam.TotalMarks)
	applyScore(attempt, score, now)

	if err := s.repo.Attempt().Complete(ctx, attempt); err != nil {
		return nil, s.classifyConflict(ctx, attempt.ID, err, ErrAttemptRequiresResume)
	}

	result := &SubmitResult{
		AttemptID:        attempt.ID,
		TotalScore:       attempt.TotalScore,
		TotalMarks:       exam.TotalMarks,
		Percentage:       attempt.Percentage,
		CorrectAnswers:   attempt.CorrectAnswers,
		IncorrectAnswers: attempt.IncorrectAnswers,
		Unattempted:      attempt.Unattempted,
		TimeTaken:        attempt.TimeTaken,
	}

	s.publish(ctx, events.EventAttemptSubmitted, events.AttemptEvent{
		AttemptID:  attempt.ID,
		ExamID:     attempt.ExamID,
		UserID:     attempt.UserID,
		TotalScore: &result.TotalScore,
		Percentage: &result.Percentage,
		TimeTaken:  &result.TimeTaken,
	})

	s.logger.InfoContext(ctx, "Exam attempt submitted",
		"attempt_id", attempt.ID,
		"total_score", result.TotalScore,
		"percentage", result.Percentage,
		"time_taken", result.TimeTaken)

	return result, nil
}

// GetResult returns the attempt with its exam and every question, answers included
func (s *attemptService) GetResult(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error) {
	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID, "view")
	if err != nil {
		return nil, err
	}

	exam, err := s.loadExamWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	attempt.Exam = exam

	return attempt, nil
}
