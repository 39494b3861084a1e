package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/integrations"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// ===== ATTEMPT DTOs =====

type AnswerInput struct {
	QuestionID     uint    `json:"question" validate:"required"`
	SelectedAnswer *string `json:"selectedAnswer" validate:"omitempty,option_label"`
}

type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,dive"`
}

type PauseAttemptRequest struct {
	Answers []AnswerInput `json:"answers" validate:"omitempty,dive"`
}

type AttemptResponse struct {
	Attempt   *models.ExamAttempt `json:"attempt"`
	Exam      *models.Exam        `json:"exam"`
	Created   bool                `json:"created"`
	IsResumed bool                `json:"isResumed"`
}

type SubmitResult struct {
	AttemptID        uint    `json:"attemptId"`
	TotalScore       float64 `json:"totalScore"`
	TotalMarks       float64 `json:"totalMarks"`
	Percentage       float64 `json:"percentage"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	Unattempted      int     `json:"unattempted"`
	TimeTaken        int64   `json:"timeTaken"`
}

// ===== EXAM DTOs =====

// ExamListItem is an exam annotated with the caller's attempt on it
type ExamListItem struct {
	*models.Exam
	Status        models.ExamStatus `json:"status"`
	QuestionCount int64             `json:"questionCount"`
	IsAttempted   bool              `json:"isAttempted"`
	IsPaused      bool              `json:"isPaused"`
	AttemptID     *uint             `json:"attemptId"`
}

type AttemptStatus struct {
	IsCompleted        bool  `json:"isCompleted"`
	IsPaused           bool  `json:"isPaused"`
	CompletedAttemptID *uint `json:"completedAttemptId,omitempty"`
	PausedAttemptID    *uint `json:"pausedAttemptId,omitempty"`
}

type ExamDetailsResponse struct {
	Exam          *models.Exam      `json:"exam"`
	Status        models.ExamStatus `json:"status"`
	QuestionCount int64             `json:"questionCount"`
	AttemptStatus AttemptStatus     `json:"attemptStatus"`
}

// ===== USER DTOs =====

type ProfileUpdateRequest struct {
	Name              *string               `json:"name" validate:"omitempty,min=1,max=100"`
	Email             *string               `json:"email" validate:"omitempty,email"`
	ExamPreparations  []models.ExamCategory `json:"examPreparations" validate:"omitempty,dive,exam_category"`
	PreferredLanguage *models.Language      `json:"preferredLanguage" validate:"omitempty,exam_language"`
}

type HistoryEntry struct {
	AttemptID        uint               `json:"attemptId"`
	Exam             models.ExamSummary `json:"exam"`
	TotalScore       float64            `json:"totalScore"`
	Percentage       float64            `json:"percentage"`
	CorrectAnswers   int                `json:"correctAnswers"`
	IncorrectAnswers int                `json:"incorrectAnswers"`
	Unattempted      int                `json:"unattempted"`
	TimeTaken        int64              `json:"timeTaken"`
	EndTime          *time.Time         `json:"endTime"`
	CreatedAt        time.Time          `json:"createdAt"`
}

type DashboardCounters struct {
	TotalAttempts        int64       `json:"totalAttempts"`
	AverageScore         float64     `json:"averageScore"`
	WeeklyExamsRemaining interface{} `json:"weeklyExamsRemaining"`
}

type DashboardStats struct {
	AvailableExams     []*ExamListItem           `json:"availableExams"`
	Stats              DashboardCounters         `json:"stats"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
}

type QuotaStatus struct {
	Used               int                       `json:"used"`
	Limit              interface{}               `json:"limit"`
	Remaining          interface{}               `json:"remaining"`
	ResetsAt           time.Time                 `json:"resetsAt"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
}

type AnalyticsSummary struct {
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	BestScore     float64 `json:"bestScore"`
}

type CategoryPerformance struct {
	Category     models.ExamCategory `json:"category"`
	Attempts     int                 `json:"attempts"`
	AverageScore float64             `json:"averageScore"`
	BestScore    float64             `json:"bestScore"`
}

type RecentAttempt struct {
	AttemptID  uint      `json:"attemptId"`
	ExamTitle  string    `json:"examTitle"`
	Score      float64   `json:"score"`
	TotalMarks float64   `json:"totalMarks"`
	Percentage float64   `json:"percentage"`
	Date       time.Time `json:"date"`
}

type AnalyticsTrends struct {
	ScoreChange     float64 `json:"scoreChange"`
	AttemptsChange  float64 `json:"attemptsChange"`
	ImprovementRate float64 `json:"improvementRate"`
}

type Analytics struct {
	TimeRange           string                `json:"timeRange"`
	Stats               AnalyticsSummary      `json:"stats"`
	CategoryPerformance []CategoryPerformance `json:"categoryPerformance"`
	RecentAttempts      []RecentAttempt       `json:"recentAttempts"`
	Trends              AnalyticsTrends       `json:"trends"`
}

// ===== ADMIN DTOs =====

type QuestionCreateRequest struct {
	QuestionText      string                 `json:"questionText" validate:"required"`
	QuestionTextHindi *string                `json:"questionTextHindi"`
	Options           QuestionOptions        `json:"options" validate:"required"`
	OptionsHindi      QuestionOptions        `json:"optionsHindi"`
	CorrectAnswer     string                 `json:"correctAnswer" validate:"required,option_label"`
	Explanation       *string                `json:"explanation"`
	ExplanationHindi  *string                `json:"explanationHindi"`
	Category          models.ExamCategory    `json:"category" validate:"required,exam_category"`
	Subject           string                 `json:"subject" validate:"required,max=100"`
	Topic             *string                `json:"topic" validate:"omitempty,max=100"`
	Marks             *float64               `json:"marks" validate:"omitempty,marks_range"`
	Difficulty        models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Language          models.Language        `json:"language" validate:"omitempty,exam_language"`
	QuestionImage     *string                `json:"questionImage" validate:"omitempty,url"`
}

type QuestionUpdateRequest struct {
	QuestionText      *string                 `json:"questionText" validate:"omitempty,min=1"`
	QuestionTextHindi *string                 `json:"questionTextHindi"`
	Options           QuestionOptions         `json:"options"`
	OptionsHindi      QuestionOptions         `json:"optionsHindi"`
	CorrectAnswer     *string                 `json:"correctAnswer" validate:"omitempty,option_label"`
	Explanation       *string                 `json:"explanation"`
	ExplanationHindi  *string                 `json:"explanationHindi"`
	Category          *models.ExamCategory    `json:"category" validate:"omitempty,exam_category"`
	Subject           *string                 `json:"subject" validate:"omitempty,min=1,max=100"`
	Topic             *string                 `json:"topic" validate:"omitempty,max=100"`
	Marks             *float64                `json:"marks" validate:"omitempty,marks_range"`
	Difficulty        *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Language          *models.Language        `json:"language" validate:"omitempty,exam_language"`
	QuestionImage     *string                 `json:"questionImage" validate:"omitempty,url"`
}

type GenerateQuestionsRequest struct {
	ExamType   models.ExamCategory    `json:"examType" validate:"required,exam_category"`
	Subject    string                 `json:"subject" validate:"required,max=100"`
	Topic      string                 `json:"topic" validate:"omitempty,max=100"`
	Count      int                    `json:"count" validate:"required,min=1,max=50"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`
	Language   models.Language        `json:"language" validate:"omitempty,exam_language"`
}

// GeneratedQuestionPreview is a generated question ready to be reviewed and saved
type GeneratedQuestionPreview struct {
	integrations.GeneratedQuestion
	Category      models.ExamCategory    `json:"category"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
	Language      models.Language        `json:"language"`
	IsAIGenerated bool                   `json:"isAIGenerated"`
}

type SaveAIQuestionsRequest struct {
	Questions []QuestionCreateRequest `json:"questions" validate:"required,min=1,max=50,dive"`
}

const (
	SelectionManual = "manual"
	SelectionAuto   = "auto"

	DefaultAutoQuestionCount = 50
)

type ExamCreateRequest struct {
	Title           string              `json:"title" validate:"required,exam_title"`
	Category        models.ExamCategory `json:"category" validate:"required,exam_category"`
	ScheduledTime   *time.Time          `json:"scheduledTime"`
	ExpiresAt       *time.Time          `json:"expiresAt"`
	Duration        int                 `json:"duration" validate:"required,exam_duration"`
	SelectionMethod string              `json:"selectionMethod" validate:"omitempty,oneof=manual auto"`
	QuestionIDs     []uint              `json:"questions"`
	Subjects        []string            `json:"subjects"`
	QuestionCount   int                 `json:"questionCount" validate:"omitempty,min=1,max=200"`
	TotalMarks      *float64            `json:"totalMarks" validate:"omitempty,gt=0"`
	Language        models.Language     `json:"language" validate:"omitempty,exam_language"`
	Status          models.ExamStatus   `json:"status" validate:"omitempty,oneof=draft scheduled"`
}

type ExamUpdateRequest struct {
	Title         *string              `json:"title" validate:"omitempty,exam_title"`
	Category      *models.ExamCategory `json:"category" validate:"omitempty,exam_category"`
	ScheduledTime *time.Time           `json:"scheduledTime"`
	ExpiresAt     *time.Time           `json:"expiresAt"`
	Duration      *int                 `json:"duration" validate:"omitempty,exam_duration"`
	QuestionIDs   []uint               `json:"questions"`
	TotalMarks    *float64             `json:"totalMarks" validate:"omitempty,gt=0"`
	Language      *models.Language     `json:"language" validate:"omitempty,exam_language"`
}

type ExamAdminResponse struct {
	Exam              *models.Exam `json:"exam"`
	SelectedQuestions int          `json:"selectedQuestions"`
}

type SubjectTopics struct {
	Subject  string              `json:"subject"`
	Category models.ExamCategory `json:"category"`
	Topics   []string            `json:"topics"`
}

type SubscriptionUpgradeRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly yearly"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, examID uint, userID string) (*AttemptResponse, error)
	SaveAnswers(ctx context.Context, attemptID uint, userID string, req *SaveAnswersRequest) (*models.ExamAttempt, error)
	Pause(ctx context.Context, attemptID uint, userID string, req *PauseAttemptRequest) (*models.ExamAttempt, error)
	Submit(ctx context.Context, attemptID uint, userID string) (*SubmitResult, error)
	GetResult(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error)
}

type ExamService interface {
	ListAvailable(ctx context.Context, userID string, limit int) ([]*ExamListItem, error)
	GetDetails(ctx context.Context, examID uint, userID string, includeQuestions bool) (*ExamDetailsResponse, error)
}

type UserService interface {
	EnsureUser(ctx context.Context, user *models.User) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *ProfileUpdateRequest) (*models.User, error)
	GetExamHistory(ctx context.Context, userID string, category *models.ExamCategory) ([]*HistoryEntry, error)
	ExportExamHistory(ctx context.Context, userID string, category *models.ExamCategory, w io.Writer) error
	GetDashboardStats(ctx context.Context, userID string) (*DashboardStats, error)
	GetQuota(ctx context.Context, userID string) (*QuotaStatus, error)
	GetAnalytics(ctx context.Context, userID string, timeRange string) (*Analytics, error)
}

type AdminService interface {
	// Questions
	CreateQuestion(ctx context.Context, req *QuestionCreateRequest, adminID string) (*models.Question, error)
	ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	UpdateQuestion(ctx context.Context, id uint, req *QuestionUpdateRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id uint) error
	DeleteQuestions(ctx context.Context, ids []uint) (*models.BulkOperationResult, error)
	ImportQuestions(ctx context.Context, r io.Reader, adminID string) (*models.BulkOperationResult, error)
	ListSubjectTopics(ctx context.Context, category *models.ExamCategory) ([]*SubjectTopics, error)

	// AI generation
	GenerateQuestions(ctx context.Context, req *GenerateQuestionsRequest) ([]*GeneratedQuestionPreview, error)
	SaveAIQuestions(ctx context.Context, req *SaveAIQuestionsRequest, adminID string) ([]*models.Question, error)

	// Exams
	CreateExam(ctx context.Context, req *ExamCreateRequest, adminID string) (*ExamAdminResponse, error)
	ListExams(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
	UpdateExam(ctx context.Context, id uint, req *ExamUpdateRequest) (*models.Exam, error)
	PublishExam(ctx context.Context, id uint, adminID string) (*models.Exam, error)
	DeleteExam(ctx context.Context, id uint) error

	// Users
	ListUsers(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error)
	UpgradeSubscription(ctx context.Context, userID string, req *SubscriptionUpgradeRequest) (*models.User, error)
}

// ServiceManager manages all service instances
type ServiceManager interface {
	Attempt() AttemptService
	Exam() ExamService
	User() UserService
	Admin() AdminService
	Quota() *QuotaTracker

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Health(ctx context.Context) map[string]string
}
