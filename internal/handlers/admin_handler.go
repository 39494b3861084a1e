package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// maxImportSize bounds question workbook uploads
const maxImportSize = 10 << 20

// AdminHandler serves /admin; every route sits behind the admin role check
type AdminHandler struct {
	BaseHandler
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService, logger utils.Logger, exposeErrors bool) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  NewBaseHandler(logger, exposeErrors),
		adminService: adminService,
	}
}

// ===== QUESTIONS =====

// CreateQuestion adds a question to the bank
// @Summary Create question
// @Tags admin
// @Accept json
// @Produce json
// @Param request body services.QuestionCreateRequest true "Question"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /admin/questions [post]
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	var req services.QuestionCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.adminService.CreateQuestion(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ListQuestions pages through the question bank
// @Summary List questions
// @Tags admin
// @Produce json
// @Param category query string false "Exam category"
// @Param subject query string false "Subject"
// @Param topic query string false "Topic"
// @Param difficulty query string false "Easy, Medium or Hard"
// @Param language query string false "Hindi, English or Both"
// @Param search query string false "Text search"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.PaginatedResponse
// @Router /admin/questions [get]
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	category, ok := categoryQuery(c)
	if !ok {
		return
	}
	page, size := h.pagination(c)

	filters := repositories.QuestionFilters{
		Category:  category,
		Search:    strings.TrimSpace(c.Query("search")),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sortBy", "created_at"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}
	if subject := c.Query("subject"); subject != "" {
		filters.Subjects = strings.Split(subject, ",")
	}
	if topic := c.Query("topic"); topic != "" {
		filters.Topic = &topic
	}
	if difficulty := c.Query("difficulty"); difficulty != "" {
		d := models.DifficultyLevel(difficulty)
		filters.Difficulty = &d
	}
	if language := c.Query("language"); language != "" {
		l := models.Language(language)
		filters.Language = &l
	}

	questions, total, err := h.adminService.ListQuestions(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(questions, len(questions), total, page, size))
}

// UpdateQuestion applies a partial update
// @Summary Update question
// @Tags admin
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param request body services.QuestionUpdateRequest true "Changes"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions/{id} [put]
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.QuestionUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.adminService.UpdateQuestion(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes one question
// @Summary Delete question
// @Tags admin
// @Param id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions/{id} [delete]
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteQuestion(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted successfully"})
}

// DeleteQuestions removes several questions, reporting per-id failures
// @Summary Bulk delete questions
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.BulkDeleteRequest true "Question IDs"
// @Success 200 {object} models.BulkOperationResult
// @Router /admin/questions [delete]
func (h *AdminHandler) DeleteQuestions(c *gin.Context) {
	var req models.BulkDeleteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.adminService.DeleteQuestions(c.Request.Context(), req.QuestionIDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportQuestions loads questions from an uploaded workbook
// @Summary Import questions
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} models.BulkOperationResult
// @Failure 400 {object} ErrorResponse
// @Router /admin/questions/import [post]
func (h *AdminHandler) ImportQuestions(c *gin.Context) {
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "A workbook must be uploaded in the file field"})
		return
	}
	if header.Size > maxImportSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Workbook is larger than 10MB"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", header.Filename, "size", header.Size)

	result, err := h.adminService.ImportQuestions(c.Request.Context(), file, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSubjects groups question bank subjects with their topics
// @Summary List subjects and topics
// @Tags admin
// @Produce json
// @Param category query string false "Exam category"
// @Success 200 {array} services.SubjectTopics
// @Router /admin/subjects [get]
func (h *AdminHandler) ListSubjects(c *gin.Context) {
	category, ok := categoryQuery(c)
	if !ok {
		return
	}

	subjects, err := h.adminService.ListSubjectTopics(c.Request.Context(), category)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subjects)
}

// GenerateQuestions drafts questions with the AI generator without saving them
// @Summary Generate questions
// @Tags admin
// @Accept json
// @Produce json
// @Param request body services.GenerateQuestionsRequest true "Generation parameters"
// @Success 200 {array} services.GeneratedQuestionPreview
// @Failure 503 {object} ErrorResponse
// @Router /admin/questions/generate [post]
func (h *AdminHandler) GenerateQuestions(c *gin.Context) {
	var req services.GenerateQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	questions, err := h.adminService.GenerateQuestions(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// SaveAIQuestions persists reviewed generated questions
// @Summary Save generated questions
// @Tags admin
// @Accept json
// @Produce json
// @Param request body services.SaveAIQuestionsRequest true "Questions"
// @Success 201 {array} models.Question
// @Router /admin/questions/save-ai [post]
func (h *AdminHandler) SaveAIQuestions(c *gin.Context) {
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	var req services.SaveAIQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	questions, err := h.adminService.SaveAIQuestions(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// ===== EXAMS =====

// CreateExam creates a draft or scheduled exam
// @Summary Create exam
// @Tags admin
// @Accept json
// @Produce json
// @Param request body services.ExamCreateRequest true "Exam"
// @Success 201 {object} services.ExamAdminResponse
// @Failure 400 {object} ErrorResponse
// @Router /admin/exams [post]
func (h *AdminHandler) CreateExam(c *gin.Context) {
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	var req services.ExamCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.adminService.CreateExam(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListExams pages through all exams regardless of status
// @Summary List exams
// @Tags admin
// @Produce json
// @Param status query string false "draft, scheduled, active or completed"
// @Param category query string false "Exam category"
// @Success 200 {object} models.PaginatedResponse
// @Router /admin/exams [get]
func (h *AdminHandler) ListExams(c *gin.Context) {
	category, ok := categoryQuery(c)
	if !ok {
		return
	}
	page, size := h.pagination(c)

	filters := repositories.ExamFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sortBy", "created_at"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}
	if category != nil {
		filters.Categories = []models.ExamCategory{*category}
	}
	if status := c.Query("status"); status != "" {
		filters.Statuses = []models.ExamStatus{models.ExamStatus(status)}
	}

	exams, total, err := h.adminService.ListExams(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(exams, len(exams), total, page, size))
}

// UpdateExam edits a draft exam
// @Summary Update exam
// @Tags admin
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param request body services.ExamUpdateRequest true "Changes"
// @Success 200 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Router /admin/exams/{id} [put]
func (h *AdminHandler) UpdateExam(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ExamUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	exam, err := h.adminService.UpdateExam(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// PublishExam moves a draft with questions to scheduled
// @Summary Publish exam
// @Tags admin
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Router /admin/exams/{id}/publish [post]
func (h *AdminHandler) PublishExam(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := h.userID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing exam", "exam_id", id)

	exam, err := h.adminService.PublishExam(c.Request.Context(), id, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam removes a draft exam
// @Summary Delete exam
// @Tags admin
// @Param id path uint true "Exam ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /admin/exams/{id} [delete]
func (h *AdminHandler) DeleteExam(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteExam(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam deleted successfully"})
}

// ===== USERS =====

// ListUsers pages through registered users
// @Summary List users
// @Tags admin
// @Produce json
// @Param role query string false "user or admin"
// @Param subscription query string false "free or premium"
// @Param search query string false "Name or phone"
// @Success 200 {object} models.PaginatedResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, size := h.pagination(c)

	filters := repositories.UserFilters{
		Search:    strings.TrimSpace(c.Query("search")),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sortBy", "created_at"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filters.Role = &r
	}
	if subscription := c.Query("subscription"); subscription != "" {
		s := models.SubscriptionStatus(subscription)
		filters.SubscriptionStatus = &s
	}

	users, total, err := h.adminService.ListUsers(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(users, len(users), total, page, size))
}

// UpgradeSubscription grants or extends premium
// @Summary Upgrade subscription
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body services.SubscriptionUpgradeRequest true "Plan"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/subscription [put]
func (h *AdminHandler) UpgradeSubscription(c *gin.Context) {
	userID := c.Param("id")

	var req services.SubscriptionUpgradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Upgrading subscription", "target_user", userID, "plan", req.Plan)

	user, err := h.adminService.UpgradeSubscription(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
