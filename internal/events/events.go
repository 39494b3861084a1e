package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptResumed   EventType = "attempt.resumed"
	EventAttemptPaused    EventType = "attempt.paused"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventExamPublished    EventType = "exam.published"
)

const (
	TopicAttempts = "exam-attempts"
	TopicExams    = "exams"
)

// Topic returns the unprefixed topic an event type is routed to
func (t EventType) Topic() string {
	switch t {
	case EventExamPublished:
		return TopicExams
	default:
		return TopicAttempts
	}
}

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// AttemptEvent is the payload of every attempt.* event
type AttemptEvent struct {
	AttemptID uint   `json:"attemptId"`
	ExamID    uint   `json:"examId"`
	UserID    string `json:"userId"`

	// Set on attempt.resumed
	PausedSeconds int64 `json:"pausedSeconds,omitempty"`

	// Set on attempt.submitted
	TotalScore *float64 `json:"totalScore,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	TimeTaken  *int64   `json:"timeTaken,omitempty"`
}

type ExamEvent struct {
	ExamID        uint      `json:"examId"`
	Category      string    `json:"category"`
	ScheduledTime time.Time `json:"scheduledTime"`
	PublishedBy   string    `json:"publishedBy"`
}

// EventPublisher delivers domain events to the configured broker
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
