package services

import (
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// DeriveExamStatus computes the lifecycle status at now from the stored status and the
// scheduling window. It never writes anything back.
func DeriveExamStatus(exam *models.Exam, now time.Time) models.ExamStatus {
	switch exam.Status {
	case models.ExamStatusDraft, models.ExamStatusCompleted:
		return exam.Status
	}

	if exam.ExpiresAt != nil && exam.ExpiresAt.Before(now) {
		return models.ExamStatusCompleted
	}
	if !exam.ScheduledTime.After(now) {
		return models.ExamStatusActive
	}
	return models.ExamStatusScheduled
}

// CheckAvailability decides whether user may start exam at now.
// Returns nil or a *NotAvailableError.
func CheckAvailability(exam *models.Exam, user *models.User, now time.Time) error {
	if !user.IsPreparingFor(exam.Category) {
		return &NotAvailableError{ExamID: exam.ID, Reason: ReasonNotInPreparation}
	}

	switch DeriveExamStatus(exam, now) {
	case models.ExamStatusDraft, models.ExamStatusScheduled:
		return &NotAvailableError{ExamID: exam.ID, Reason: ReasonNotStarted}
	case models.ExamStatusCompleted:
		return &NotAvailableError{ExamID: exam.ID, Reason: ReasonExpired}
	}

	return nil
}
