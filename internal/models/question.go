package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// Option labels in display order
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

var OptionLabels = []string{OptionA, OptionB, OptionC, OptionD}

// IsOptionLabel reports whether label is one of A-D
func IsOptionLabel(label string) bool {
	for _, l := range OptionLabels {
		if l == label {
			return true
		}
	}
	return false
}

type QuestionOption struct {
	OptionLabel string `json:"optionLabel"`
	OptionText  string `json:"optionText"`
}

type Question struct {
	ID                uint                                `json:"id" gorm:"primaryKey"`
	QuestionText      string                              `json:"questionText" gorm:"type:text;not null"`
	QuestionTextHindi *string                             `json:"questionTextHindi,omitempty" gorm:"type:text"`
	Options           datatypes.JSONSlice[QuestionOption] `json:"options" gorm:"type:jsonb;not null"`
	OptionsHindi      datatypes.JSONSlice[QuestionOption] `json:"optionsHindi,omitempty" gorm:"type:jsonb"`
	CorrectAnswer     string                              `json:"correctAnswer,omitempty" gorm:"size:1;not null"`
	Explanation       *string                             `json:"explanation,omitempty" gorm:"type:text"`
	ExplanationHindi  *string                             `json:"explanationHindi,omitempty" gorm:"type:text"`

	Category   ExamCategory    `json:"category" gorm:"size:20;not null;index"`
	Subject    string          `json:"subject" gorm:"size:100;not null;index"`
	Topic      *string         `json:"topic,omitempty" gorm:"size:100"`
	Marks      float64         `json:"marks" gorm:"default:1"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"size:10;default:Medium"`
	Language   Language        `json:"language" gorm:"size:10;default:English"`

	QuestionImage *string `json:"questionImage,omitempty" gorm:"size:500"`
	IsAIGenerated bool    `json:"isAIGenerated" gorm:"default:false"`
	CreatedBy     string  `json:"createdBy" gorm:"size:255;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Question) TableName() string {
	return "questions"
}

// EffectiveMarks returns the configured marks, treating an unset value as 1
func (q *Question) EffectiveMarks() float64 {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// WithoutAnswer returns a copy safe to show before an attempt is in progress
func (q Question) WithoutAnswer() Question {
	q.CorrectAnswer = ""
	q.Explanation = nil
	q.ExplanationHindi = nil
	return q
}
