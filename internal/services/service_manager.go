package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/integrations"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ServiceManagerConfig holds the collaborators shared by every service
type ServiceManagerConfig struct {
	Repository repositories.Repository
	Publisher  events.EventPublisher
	Generator  integrations.QuestionGenerator
	Validator  *validator.Validator
	Logger     *slog.Logger

	// HealthTimeout bounds the dependency checks in Health
	HealthTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	config ServiceManagerConfig

	// Service instances
	quota          *QuotaTracker
	attemptService AttemptService
	examService    ExamService
	userService    UserService
	adminService   AdminService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(config ServiceManagerConfig) ServiceManager {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Validator == nil {
		config.Validator = validator.New()
	}
	if config.Generator == nil {
		config.Generator = integrations.Disabled()
	}
	if config.HealthTimeout <= 0 {
		config.HealthTimeout = 3 * time.Second
	}
	return &serviceManager{config: config}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.config.Repository == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}

	logger := sm.config.Logger
	logger.Info("Initializing service manager")

	sm.quota = NewQuotaTracker(logger)
	sm.attemptService = NewAttemptService(sm.config.Repository, sm.quota, sm.config.Publisher, logger, sm.config.Validator)
	sm.examService = NewExamService(sm.config.Repository, logger)
	sm.userService = NewUserService(sm.config.Repository, sm.examService, sm.quota, logger, sm.config.Validator)
	sm.adminService = NewAdminService(sm.config.Repository, sm.config.Generator, sm.config.Publisher, logger, sm.config.Validator)

	sm.initialized = true
	logger.Info("Service manager initialized successfully",
		"events_enabled", sm.config.Publisher != nil,
		"ai_generator_configured", sm.config.Generator.Configured())

	return nil
}

// Service getters
func (sm *serviceManager) Attempt() AttemptService {
	sm.mustBeInitialized()
	return sm.attemptService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mustBeInitialized()
	return sm.examService
}

func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mustBeInitialized()
	return sm.adminService
}

func (sm *serviceManager) Quota() *QuotaTracker {
	sm.mustBeInitialized()
	return sm.quota
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health reports "ok" or the failure for each dependency
func (sm *serviceManager) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, sm.config.HealthTimeout)
	defer cancel()

	status := map[string]string{"database": "ok"}
	if sm.config.Repository == nil {
		status["database"] = "not configured"
	} else if err := sm.config.Repository.Ping(ctx); err != nil {
		status["database"] = err.Error()
	}

	if sm.config.Generator.Configured() {
		status["ai_generator"] = "configured"
	} else {
		status["ai_generator"] = "not configured"
	}

	return status
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.config.Logger.Info("Shutting down service manager")

	if sm.config.Publisher != nil {
		if err := sm.config.Publisher.Close(); err != nil {
			sm.config.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.config.Logger.Info("Service manager shut down completed")

	return nil
}
