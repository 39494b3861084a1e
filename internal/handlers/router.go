package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const serviceName = "exam-service"

type HandlerManager struct {
	examHandler    *ExamHandler
	userHandler    *UserHandler
	adminHandler   *AdminHandler
	serviceManager services.ServiceManager
	authenticate   gin.HandlerFunc
}

func NewHandlerManager(serviceManager services.ServiceManager, cfg *config.Config, logger utils.Logger) *HandlerManager {
	auth := NewCasdoorAuthMiddleware(cfg.Casdoor, serviceManager.User(), logger)
	return newHandlerManager(serviceManager, auth.AuthMiddleware(), logger, !cfg.IsProduction())
}

func newHandlerManager(serviceManager services.ServiceManager, authenticate gin.HandlerFunc, logger utils.Logger, exposeErrors bool) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Exam(), serviceManager.Attempt(), logger, exposeErrors),
		userHandler:    NewUserHandler(serviceManager.User(), logger, exposeErrors),
		adminHandler:   NewAdminHandler(serviceManager.Admin(), logger, exposeErrors),
		serviceManager: serviceManager,
		authenticate:   authenticate,
	}
}

// SetupRoutes registers health checks and the authenticated /api/v1 tree
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.Health)
	router.GET("/api/health", hm.Health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authenticate)
	{
		exams := v1.Group("/exams")
		{
			exams.GET("/available", hm.examHandler.ListAvailable)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.POST("/:id/start", hm.examHandler.StartExam)

			exams.PUT("/attempt/:attemptId", hm.examHandler.SaveAnswers)
			exams.POST("/attempt/:attemptId/pause", hm.examHandler.PauseAttempt)
			exams.POST("/attempt/:attemptId/submit", hm.examHandler.SubmitAttempt)
			exams.GET("/result/:attemptId", hm.examHandler.GetResult)
		}

		me := v1.Group("/users/me")
		{
			me.GET("/profile", hm.userHandler.GetProfile)
			me.PUT("/profile", hm.userHandler.UpdateProfile)
			me.GET("/exam-history", hm.userHandler.GetExamHistory)
			me.GET("/exam-history/export", hm.userHandler.ExportExamHistory)
			me.GET("/dashboard-stats", hm.userHandler.GetDashboardStats)
			me.GET("/quota", hm.userHandler.GetQuota)
			me.GET("/analytics", hm.userHandler.GetAnalytics)
		}

		admin := v1.Group("/admin")
		admin.Use(RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.POST("/questions", hm.adminHandler.CreateQuestion)
			admin.GET("/questions", hm.adminHandler.ListQuestions)
			admin.DELETE("/questions", hm.adminHandler.DeleteQuestions)
			admin.POST("/questions/import", hm.adminHandler.ImportQuestions)
			admin.POST("/questions/generate", hm.adminHandler.GenerateQuestions)
			admin.POST("/questions/save-ai", hm.adminHandler.SaveAIQuestions)
			admin.PUT("/questions/:id", hm.adminHandler.UpdateQuestion)
			admin.DELETE("/questions/:id", hm.adminHandler.DeleteQuestion)
			admin.GET("/subjects", hm.adminHandler.ListSubjects)

			admin.POST("/exams", hm.adminHandler.CreateExam)
			admin.GET("/exams", hm.adminHandler.ListExams)
			admin.PUT("/exams/:id", hm.adminHandler.UpdateExam)
			admin.DELETE("/exams/:id", hm.adminHandler.DeleteExam)
			admin.POST("/exams/:id/publish", hm.adminHandler.PublishExam)

			admin.GET("/users", hm.adminHandler.ListUsers)
			admin.PUT("/users/:id/subscription", hm.adminHandler.UpgradeSubscription)
		}
	}
}

// Health reports 503 when the database is unreachable
func (hm *HandlerManager) Health(c *gin.Context) {
	checks := hm.serviceManager.Health(c.Request.Context())

	status, code := "healthy", http.StatusOK
	if checks["database"] != "ok" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
