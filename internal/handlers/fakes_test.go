package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Unset methods on the embedded interfaces panic, which fails the test loudly.

type fakeAttemptService struct {
	services.AttemptService

	startResp  *services.AttemptResponse
	saved      *services.SaveAnswersRequest
	paused     *services.PauseAttemptRequest
	submitErr  error
	lastExamID uint
	lastUserID string
}

func (f *fakeAttemptService) Start(_ context.Context, examID uint, userID string) (*services.AttemptResponse, error) {
	f.lastExamID, f.lastUserID = examID, userID
	return f.startResp, nil
}

func (f *fakeAttemptService) SaveAnswers(_ context.Context, attemptID uint, userID string, req *services.SaveAnswersRequest) (*models.ExamAttempt, error) {
	f.lastUserID = userID
	f.saved = req
	return &models.ExamAttempt{ID: attemptID, UserID: userID}, nil
}

func (f *fakeAttemptService) Pause(_ context.Context, attemptID uint, userID string, req *services.PauseAttemptRequest) (*models.ExamAttempt, error) {
	f.paused = req
	return &models.ExamAttempt{ID: attemptID, UserID: userID, IsPaused: true}, nil
}

func (f *fakeAttemptService) Submit(_ context.Context, attemptID uint, _ string) (*services.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &services.SubmitResult{AttemptID: attemptID, TotalScore: 3, TotalMarks: 4, Percentage: 75}, nil
}

type fakeExamService struct {
	services.ExamService

	lastInclude bool
	lastLimit   int
}

func (f *fakeExamService) ListAvailable(_ context.Context, _ string, limit int) ([]*services.ExamListItem, error) {
	f.lastLimit = limit
	return []*services.ExamListItem{}, nil
}

func (f *fakeExamService) GetDetails(_ context.Context, examID uint, _ string, includeQuestions bool) (*services.ExamDetailsResponse, error) {
	f.lastInclude = includeQuestions
	if examID == 404 {
		return nil, services.ErrExamNotFound
	}
	return &services.ExamDetailsResponse{Exam: &models.Exam{ID: examID}}, nil
}

type fakeUserService struct {
	services.UserService

	ensured      *models.User
	storedRole   models.UserRole
	lastCategory *models.ExamCategory
	lastRange    string
}

func (f *fakeUserService) EnsureUser(_ context.Context, user *models.User) (*models.User, error) {
	f.ensured = user
	stored := *user
	if f.storedRole != "" {
		stored.Role = f.storedRole
	}
	if stored.Role == "" {
		stored.Role = models.RoleUser
	}
	return &stored, nil
}

func (f *fakeUserService) GetExamHistory(_ context.Context, _ string, category *models.ExamCategory) ([]*services.HistoryEntry, error) {
	f.lastCategory = category
	return []*services.HistoryEntry{}, nil
}

func (f *fakeUserService) ExportExamHistory(_ context.Context, _ string, _ *models.ExamCategory, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx-bytes")
	return err
}

func (f *fakeUserService) GetAnalytics(_ context.Context, _ string, timeRange string) (*services.Analytics, error) {
	f.lastRange = timeRange
	return &services.Analytics{TimeRange: timeRange}, nil
}

type fakeAdminService struct {
	services.AdminService

	questionFilters repositories.QuestionFilters
	examFilters     repositories.ExamFilters
	imported        string
	upgradedUser    string
}

func (f *fakeAdminService) ListQuestions(_ context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	f.questionFilters = filters
	return []*models.Question{{ID: 1}, {ID: 2}}, 42, nil
}

func (f *fakeAdminService) ListExams(_ context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	f.examFilters = filters
	return []*models.Exam{}, 0, nil
}

func (f *fakeAdminService) ImportQuestions(_ context.Context, r io.Reader, _ string) (*models.BulkOperationResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.imported = string(data)
	return &models.BulkOperationResult{SuccessCount: 1}, nil
}

func (f *fakeAdminService) GenerateQuestions(context.Context, *services.GenerateQuestionsRequest) ([]*services.GeneratedQuestionPreview, error) {
	return nil, services.ErrGeneratorNotConfigured
}

func (f *fakeAdminService) UpgradeSubscription(_ context.Context, userID string, _ *services.SubscriptionUpgradeRequest) (*models.User, error) {
	f.upgradedUser = userID
	return &models.User{ID: userID, SubscriptionStatus: models.SubscriptionPremium}, nil
}

type fakeServiceManager struct {
	attempt *fakeAttemptService
	exam    *fakeExamService
	user    *fakeUserService
	admin   *fakeAdminService
	health  map[string]string
}

func newFakeServiceManager() *fakeServiceManager {
	return &fakeServiceManager{
		attempt: &fakeAttemptService{},
		exam:    &fakeExamService{},
		user:    &fakeUserService{},
		admin:   &fakeAdminService{},
		health:  map[string]string{"database": "ok"},
	}
}

func (f *fakeServiceManager) Attempt() services.AttemptService { return f.attempt }
func (f *fakeServiceManager) Exam() services.ExamService { return f.exam }
func (f *fakeServiceManager) User() services.UserService { return f.user }
func (f *fakeServiceManager) Admin() services.AdminService { return f.admin }
func (f *fakeServiceManager) Quota() *services.QuotaTracker { return nil }
func (f *fakeServiceManager) Initialize(context.Context) error { return nil }
func (f *fakeServiceManager) Shutdown(context.Context) error { return nil }
func (f *fakeServiceManager) Health(context.Context) map[string]string { return f.health }

// fakeAuth trusts X-Test-User and X-Test-Role headers
func fakeAuth(c *gin.Context) {
	userID := c.GetHeader("X-Test-User")
	if userID == "" {
		unauthorized(c, "authorization header missing or malformed")
		return
	}
	role := models.UserRole(c.GetHeader("X-Test-Role"))
	if role == "" {
		role = models.RoleUser
	}
	c.Set("user_id", userID)
	c.Set("user_role", role)
	c.Next()
}

func newTestRouter(sm *fakeServiceManager) *gin.Engine {
	router := gin.New()
	SetupMiddleware(router, discardLogger(), []string{"*"})
	newHandlerManager(sm, fakeAuth, discardLogger(), true).SetupRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(id string) map[string]string {
	return map[string]string{"X-Test-User": id}
}

func asAdmin(id string) map[string]string {
	return map[string]string{"X-Test-User": id, "X-Test-Role": string(models.RoleAdmin)}
}

func newTestContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, engine
}
