package repositories

import "context"

// Repository aggregates the domain repositories behind one handle
type Repository interface {
	// Catalog
	Exam() ExamRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository

	// User domain (profile and weekly quota)
	User() UserRepository

	// Transaction support; repositories handed to fn are bound to the transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
