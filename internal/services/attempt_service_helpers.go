package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

func (s *attemptService) loadExamWithQuestions(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *attemptService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// findAttempt returns nil without error when the user has no attempt on the exam
func (s *attemptService) findAttempt(ctx context.Context, userID string, examID uint) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByUserAndExam(ctx, userID, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) loadOwnedAttempt(ctx context.Context, attemptID uint, userID, action string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", action, "not owned by user")
	}
	return attempt, nil
}

// createAttempt inserts the attempt and consumes one quota slot in a single transaction.
// When a concurrent request created the attempt first, the existing row is returned
// and created is false.
func (s *attemptService) createAttempt(ctx context.Context, exam *models.Exam, user *models.User, now time.Time) (attempt *models.ExamAttempt, created bool, err error) {
	if err := s.quota.CheckAndReset(ctx, s.repo.User(), user, now); err != nil {
		return nil, false, err
	}
	if !s.quota.CanAttempt(user, now) {
		return nil, false, ErrQuotaExceeded
	}

	attempt = &models.ExamAttempt{
		UserID:    user.ID,
		ExamID:    exam.ID,
		Answers:   emptyAnswers(exam.Questions),
		StartTime: now,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			return err
		}
		return s.quota.Increment(ctx, tx.User(), user, now)
	})
	if err != nil {
		switch {
		case repositories.IsDuplicateError(err):
			s.logger.InfoContext(ctx, "Attempt created concurrently, using existing",
				"exam_id", exam.ID,
				"user_id", user.ID)
			existing, ferr := s.findAttempt(ctx, user.ID, exam.ID)
			if ferr != nil {
				return nil, false, ferr
			}
			if existing == nil {
				return nil, false, fmt.Errorf("failed to create attempt: %w", err)
			}
			return existing, false, nil
		case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrUserNotFound):
			return nil, false, err
		default:
			return nil, false, fmt.Errorf("failed to create attempt: %w", err)
		}
	}

	s.publish(ctx, events.EventAttemptStarted, events.AttemptEvent{
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
		UserID:    attempt.UserID,
	})

	s.logger.InfoContext(ctx, "Exam attempt created",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"user_id", user.ID,
		"weekly_exams_attempted", user.WeeklyExamsAttempted)

	return attempt, true, nil
}

func (s *attemptService) resumeAttempt(ctx context.Context, attempt *models.ExamAttempt, now time.Time) (*models.ExamAttempt, error) {
	var pausedSeconds int64
	if attempt.PausedAt != nil {
		if d := now.Sub(*attempt.PausedAt); d > 0 {
			pausedSeconds = int64(d / time.Second)
		}
	}

	if err := s.repo.Attempt().Resume(ctx, attempt.ID, pausedSeconds, now); err != nil {
		if !errors.Is(err, repositories.ErrStateConflict) {
			return nil, fmt.Errorf("failed to resume attempt: %w", err)
		}

		// Lost to a concurrent resume or submit
		current, gerr := s.repo.Attempt().GetByID(ctx, attempt.ID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to get attempt: %w", gerr)
		}
		switch current.State() {
		case models.AttemptCompleted:
			return nil, ErrAttemptAlreadyCompleted
		case models.AttemptActive:
			return current, nil
		}
		return nil, fmt.Errorf("failed to resume attempt: %w", err)
	}

	attempt.IsPaused = false
	attempt.PausedAt = nil
	attempt.PausedDuration += pausedSeconds
	attempt.LastResumedAt = &now

	s.publish(ctx, events.EventAttemptResumed, events.AttemptEvent{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		UserID:        attempt.UserID,
		PausedSeconds: pausedSeconds,
	})

	s.logger.InfoContext(ctx, "Exam attempt resumed",
		"attempt_id", attempt.ID,
		"paused_seconds", pausedSeconds,
		"paused_duration", attempt.PausedDuration)

	return attempt, nil
}

// classifyConflict turns a failed conditional update into the state error the caller
// would have seen had it read the attempt a moment later. pausedErr is what the caller
// reports for a paused attempt.
func (s *attemptService) classifyConflict(ctx context.Context, attemptID uint, err, pausedErr error) error {
	if !errors.Is(err, repositories.ErrStateConflict) {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	current, gerr := s.repo.Attempt().GetByID(ctx, attemptID)
	if gerr != nil {
		if repositories.IsNotFoundError(gerr) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", gerr)
	}

	switch current.State() {
	case models.AttemptCompleted:
		return ErrAttemptAlreadySubmitted
	case models.AttemptPaused:
		return pausedErr
	}
	return fmt.Errorf("failed to update attempt: %w", err)
}

// normalizeAnswers checks answers against the exam's questions and returns them in the
// order given with grading fields cleared.
func (s *attemptService) normalizeAnswers(ctx context.Context, examID uint, inputs []AnswerInput) ([]models.AttemptAnswer, error) {
	exam, err := s.loadExamWithQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}

	inExam := make(map[uint]struct{}, len(exam.Questions))
	for _, q := range exam.Questions {
		inExam[q.ID] = struct{}{}
	}

	var verrs ValidationErrors
	seen := make(map[uint]struct{}, len(inputs))
	answers := make([]models.AttemptAnswer, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("answers[%d].question", i)
		if _, ok := inExam[in.QuestionID]; !ok {
			verrs = append(verrs, ValidationError{
				Field:   field,
				Message: "is not a question of this exam",
				Value:   in.QuestionID,
				Rule:    "business_logic",
			})
			continue
		}
		if _, dup := seen[in.QuestionID]; dup {
			verrs = append(verrs, ValidationError{
				Field:   field,
				Message: "is answered more than once",
				Value:   in.QuestionID,
				Rule:    "business_logic",
			})
			continue
		}
		seen[in.QuestionID] = struct{}{}
		answers = append(answers, in.toAttemptAnswer())
	}

	if len(verrs) > 0 {
		return nil, verrs
	}
	return answers, nil
}

func emptyAnswers(questions []models.Question) []models.AttemptAnswer {
	answers := make([]models.AttemptAnswer, len(questions))
	for i, q := range questions {
		answers[i] = models.AttemptAnswer{QuestionID: q.ID}
	}
	return answers
}

func applyScore(attempt *models.ExamAttempt, score ScoreResult, now time.Time) {
	attempt.Answers = score.Answers
	attempt.TotalScore = score.TotalScore
	attempt.CorrectAnswers = score.CorrectAnswers
	attempt.IncorrectAnswers = score.IncorrectAnswers
	attempt.Unattempted = score.Unattempted
	attempt.Percentage = score.Percentage

	// Wall clock since start; paused time is tracked separately in PausedDuration
	attempt.EndTime = &now
	attempt.TimeTaken = int64(now.Sub(attempt.StartTime) / time.Second)
	attempt.IsCompleted = true
}

// publish is fire and forget: a broker outage must not fail the request
func (s *attemptService) publish(ctx context.Context, eventType events.EventType, data events.AttemptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"attempt_id", data.AttemptID,
			"error", err)
	}
}
