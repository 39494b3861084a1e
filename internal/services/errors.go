package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/integrations"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("weekly limit reached. Upgrade to premium for unlimited exams")

	ErrAttemptAlreadyCompleted = errors.New("exam already completed")
	ErrAttemptAlreadySubmitted = errors.New("exam already submitted")
	ErrAttemptAlreadyPaused    = errors.New("exam is already paused")
	ErrAttemptRequiresResume   = errors.New("exam is paused. Please resume first")

	ErrExamNotAvailable = errors.New("exam not available")

	ErrGeneratorNotConfigured = integrations.ErrGeneratorNotConfigured
)

type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

// PermissionError reports a caller acting on a resource it does not own
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

// BusinessRuleError is a request that is well formed but not allowed in the current state
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

type NotAvailableReason string

const (
	ReasonNotStarted       NotAvailableReason = "not_started"
	ReasonExpired          NotAvailableReason = "expired"
	ReasonNotInPreparation NotAvailableReason = "not_in_preparation"
)

// NotAvailableError is returned by the availability gate
type NotAvailableError struct {
	ExamID uint
	Reason NotAvailableReason
}

func (e *NotAvailableError) Error() string {
	switch e.Reason {
	case ReasonNotStarted:
		return "Exam has not started yet"
	case ReasonExpired:
		return "Exam has expired"
	case ReasonNotInPreparation:
		return "Exam is not part of your exam preparations"
	default:
		return "Exam is not available"
	}
}

func (e *NotAvailableError) Unwrap() error { return ErrExamNotAvailable }
