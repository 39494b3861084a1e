package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler needs: a logger and the error mapping
type BaseHandler struct {
	logger       utils.Logger
	exposeErrors bool
}

func NewBaseHandler(logger utils.Logger, exposeErrors bool) BaseHandler {
	return BaseHandler{logger: logger, exposeErrors: exposeErrors}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	utils.FromContext(c, h.logger).Error(msg, args...)
}

// userID is set by the auth middleware; it is never empty behind it
func (h *BaseHandler) userID(c *gin.Context) (string, bool) {
	id := c.GetString("user_id")
	if id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return "", false
	}
	return id, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// pagination reads 1-based page and size query params, size capped at 100
func (h *BaseHandler) pagination(c *gin.Context) (page, size int) {
	page = h.parseIntQuery(c, "page", 1)
	size = h.parseIntQuery(c, "size", 20)
	if size > 100 {
		size = 100
	}
	return page, size
}

// bindJSON decodes the body into req; on failure it has already responded
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var notAvailable *services.NotAvailableError
	if errors.As(err, &notAvailable) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: notAvailable.Error(),
			Details: map[string]interface{}{"reason": notAvailable.Reason},
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: upperFirst(err.Error())})
	case errors.Is(err, services.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Weekly limit reached. Upgrade to premium for unlimited exams"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	case errors.Is(err, services.ErrAttemptAlreadyCompleted),
		errors.Is(err, services.ErrAttemptAlreadySubmitted),
		errors.Is(err, services.ErrAttemptAlreadyPaused),
		errors.Is(err, services.ErrAttemptRequiresResume):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: upperFirst(err.Error())})
	case errors.Is(err, services.ErrGeneratorNotConfigured):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "AI question generation is not configured"})
	default:
		h.LogError(c, err, "Unexpected service error")
		resp := ErrorResponse{Message: "Internal server error"}
		if h.exposeErrors {
			resp.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func upperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func paginated(content interface{}, count int, total int64, page, size int) models.PaginatedResponse {
	return models.NewPaginatedResponse(content, count, total, page, size)
}
