package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserHandler serves the /users/me endpoints
type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger, exposeErrors bool) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger, exposeErrors),
		userService: userService,
	}
}

// GetProfile returns the caller's profile
// @Summary Get profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes name, email, preparations or language
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.ProfileUpdateRequest true "Profile changes"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Router /users/me/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req services.ProfileUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetExamHistory lists the caller's completed attempts, newest first
// @Summary Exam history
// @Tags users
// @Produce json
// @Param category query string false "SSC, Banking or HSSC"
// @Success 200 {array} services.HistoryEntry
// @Router /users/me/exam-history [get]
func (h *UserHandler) GetExamHistory(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	category, ok := categoryQuery(c)
	if !ok {
		return
	}

	history, err := h.userService.GetExamHistory(c.Request.Context(), userID, category)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ExportExamHistory downloads the exam history as a spreadsheet
// @Summary Export exam history
// @Tags users
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param category query string false "SSC, Banking or HSSC"
// @Success 200 {file} file
// @Router /users/me/exam-history/export [get]
func (h *UserHandler) ExportExamHistory(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	category, ok := categoryQuery(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.userService.ExportExamHistory(c.Request.Context(), userID, category, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="exam-history.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetDashboardStats returns the dashboard summary
// @Summary Dashboard stats
// @Tags users
// @Produce json
// @Success 200 {object} services.DashboardStats
// @Router /users/me/dashboard-stats [get]
func (h *UserHandler) GetDashboardStats(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	stats, err := h.userService.GetDashboardStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetQuota reports the weekly exam quota
// @Summary Weekly quota
// @Tags users
// @Produce json
// @Success 200 {object} services.QuotaStatus
// @Router /users/me/quota [get]
func (h *UserHandler) GetQuota(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	quota, err := h.userService.GetQuota(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quota)
}

// GetAnalytics returns performance over a time range
// @Summary Performance analytics
// @Tags users
// @Produce json
// @Param range query string false "week, month, quarter, year or all"
// @Success 200 {object} services.Analytics
// @Router /users/me/analytics [get]
func (h *UserHandler) GetAnalytics(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	analytics, err := h.userService.GetAnalytics(c.Request.Context(), userID, c.DefaultQuery("range", "month"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// categoryQuery reads an optional category filter; an unknown value is a 400
func categoryQuery(c *gin.Context) (*models.ExamCategory, bool) {
	raw := c.Query("category")
	if raw == "" {
		return nil, true
	}
	for _, category := range models.ExamCategories {
		if string(category) == raw {
			return &category, true
		}
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: fmt.Sprintf("Invalid category %q", raw),
		Details: models.ExamCategories,
	})
	return nil, false
}
