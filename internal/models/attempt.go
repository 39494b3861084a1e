package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptState is derived from the completion and pause flags, never stored
type AttemptState string

const (
	AttemptActive    AttemptState = "active"
	AttemptPaused    AttemptState = "paused"
	AttemptCompleted AttemptState = "completed"
)

type AttemptAnswer struct {
	QuestionID     uint    `json:"question"`
	SelectedAnswer *string `json:"selectedAnswer"`
	IsCorrect      bool    `json:"isCorrect"`
	MarksObtained  float64 `json:"marksObtained"`
}

// HasSelection reports whether an option was chosen for this slot
func (a AttemptAnswer) HasSelection() bool {
	return a.SelectedAnswer != nil && *a.SelectedAnswer != ""
}

type ExamAttempt struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user" gorm:"not null;size:255;uniqueIndex:idx_user_exam_attempt"`
	ExamID uint   `json:"examId" gorm:"not null;uniqueIndex:idx_user_exam_attempt;index"`

	Answers datatypes.JSONSlice[AttemptAnswer] `json:"answers" gorm:"type:jsonb"`

	// Timing
	StartTime      time.Time  `json:"startTime" gorm:"not null"`
	EndTime        *time.Time `json:"endTime"`
	TimeTaken      int64      `json:"timeTaken"`      // seconds, wall clock including pauses
	PausedAt       *time.Time `json:"pausedAt"`
	PausedDuration int64      `json:"pausedDuration"` // seconds
	LastResumedAt  *time.Time `json:"lastResumedAt"`

	// Scoring
	TotalScore       float64 `json:"totalScore"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	Unattempted      int     `json:"unattempted"`
	Percentage       float64 `json:"percentage"`

	IsCompleted bool `json:"isCompleted" gorm:"default:false;index"`
	IsPaused    bool `json:"isPaused" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Exam *Exam `json:"exam,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	User *User `json:"-" gorm:"foreignKey:UserID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (a *ExamAttempt) State() AttemptState {
	switch {
	case a.IsCompleted:
		return AttemptCompleted
	case a.IsPaused:
		return AttemptPaused
	default:
		return AttemptActive
	}
}
