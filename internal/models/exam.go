package models

import (
	"time"
)

type ExamCategory string

const (
	CategorySSC     ExamCategory = "SSC"
	CategoryBanking ExamCategory = "Banking"
	CategoryHSSC    ExamCategory = "HSSC"
)

var ExamCategories = []ExamCategory{CategorySSC, CategoryBanking, CategoryHSSC}

type Language string

const (
	LanguageHindi   Language = "Hindi"
	LanguageEnglish Language = "English"
	LanguageBoth    Language = "Both"
)

type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusScheduled ExamStatus = "scheduled"
	ExamStatusActive    ExamStatus = "active"
	ExamStatusCompleted ExamStatus = "completed"
)

type Exam struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	Title         string       `json:"title" gorm:"not null;size:200"`
	Category      ExamCategory `json:"category" gorm:"size:20;not null;index"`
	ScheduledTime time.Time    `json:"scheduledTime" gorm:"not null;index"`
	Duration      int          `json:"duration" gorm:"not null"` // minutes
	TotalMarks    float64      `json:"totalMarks" gorm:"not null"`
	Language      Language     `json:"language" gorm:"size:10;default:English"`
	Status        ExamStatus   `json:"status" gorm:"size:20;default:draft;index"`
	ExpiresAt     *time.Time   `json:"expiresAt"`
	CreatedBy     string       `json:"createdBy" gorm:"size:255;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Ordered question set; ExamQuestions is the storage shape, Questions the hydrated one
	ExamQuestions []ExamQuestion `json:"-" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	Questions     []Question     `json:"questions,omitempty" gorm:"-"`
}

func (Exam) TableName() string {
	return "exams"
}

type ExamQuestion struct {
	ExamID     uint `json:"examId" gorm:"primaryKey"`
	QuestionID uint `json:"questionId" gorm:"primaryKey;index"`
	Position   int  `json:"position" gorm:"not null"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID;constraint:OnDelete:RESTRICT"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// QuestionIDs returns the ids of the hydrated questions in exam order
func (e *Exam) QuestionIDs() []uint {
	ids := make([]uint, len(e.Questions))
	for i, q := range e.Questions {
		ids[i] = q.ID
	}
	return ids
}

// SumQuestionMarks adds up the effective marks of every hydrated question
func (e *Exam) SumQuestionMarks() float64 {
	var total float64
	for i := range e.Questions {
		total += e.Questions[i].EffectiveMarks()
	}
	return total
}
