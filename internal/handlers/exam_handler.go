package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// ExamHandler serves the user-facing exam and attempt endpoints
type ExamHandler struct {
	BaseHandler
	examService    services.ExamService
	attemptService services.AttemptService
}

func NewExamHandler(examService services.ExamService, attemptService services.AttemptService, logger utils.Logger, exposeErrors bool) *ExamHandler {
	return &ExamHandler{
		BaseHandler:    NewBaseHandler(logger, exposeErrors),
		examService:    examService,
		attemptService: attemptService,
	}
}

// ListAvailable lists exams open to the caller
// @Summary List available exams
// @Tags exams
// @Produce json
// @Param limit query int false "Maximum number of exams"
// @Success 200 {array} services.ExamListItem
// @Failure 401 {object} ErrorResponse
// @Router /exams/available [get]
func (h *ExamHandler) ListAvailable(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	exams, err := h.examService.ListAvailable(c.Request.Context(), userID, h.parseIntQuery(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetExam returns exam details with the caller's attempt status
// @Summary Get exam details
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Param includeQuestions query bool false "Include questions without answers"
// @Success 200 {object} services.ExamDetailsResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	includeQuestions, _ := strconv.ParseBool(c.Query("includeQuestions"))
	details, err := h.examService.GetDetails(c.Request.Context(), examID, userID, includeQuestions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// StartExam starts a new attempt or resumes a paused one
// @Summary Start or resume an exam
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.AttemptResponse "Existing or resumed attempt"
// @Success 201 {object} services.AttemptResponse "Started"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/start [post]
func (h *ExamHandler) StartExam(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting exam", "exam_id", examID)

	resp, err := h.attemptService.Start(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// SaveAnswers replaces the answers of an active attempt
// @Summary Save answers
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Param request body services.SaveAnswersRequest true "Answers"
// @Success 200 {object} models.ExamAttempt
// @Failure 400 {object} ErrorResponse
// @Router /exams/attempt/{attemptId} [put]
func (h *ExamHandler) SaveAnswers(c *gin.Context) {
	attemptID, ok := h.parseIDParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req services.SaveAnswersRequest
	if !h.bindJSON(c, &req) {
		return
	}

	attempt, err := h.attemptService.SaveAnswers(c.Request.Context(), attemptID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// PauseAttempt pauses an active attempt, optionally saving answers first
// @Summary Pause attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Param request body services.PauseAttemptRequest false "Answers to save"
// @Success 200 {object} models.ExamAttempt
// @Failure 400 {object} ErrorResponse
// @Router /exams/attempt/{attemptId}/pause [post]
func (h *ExamHandler) PauseAttempt(c *gin.Context) {
	attemptID, ok := h.parseIDParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	// The body is optional; an empty one, chunked or not, means no answers
	var req services.PauseAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Pause(c.Request.Context(), attemptID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// SubmitAttempt scores and completes an attempt
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Success 200 {object} services.SubmitResult
// @Failure 400 {object} ErrorResponse
// @Router /exams/attempt/{attemptId}/submit [post]
func (h *ExamHandler) SubmitAttempt(c *gin.Context) {
	attemptID, ok := h.parseIDParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResult returns a completed attempt with the exam and its questions
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Success 200 {object} models.ExamAttempt
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/result/{attemptId} [get]
func (h *ExamHandler) GetResult(c *gin.Context) {
	attemptID, ok := h.parseIDParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}
