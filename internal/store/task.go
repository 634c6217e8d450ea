package store

import (
	"context"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
// Every listing is ordered by id ascending.
type TaskStore interface {
	// Create persists a new task and assigns its ID.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// List returns up to limit tasks, skipping the first offset.
	List(ctx context.Context, offset, limit int) ([]*domain.Task, error)

	// ListByAgent returns up to limit tasks owned by agentID, skipping the first offset.
	ListByAgent(ctx context.Context, agentID string, offset, limit int) ([]*domain.Task, error)

	// UpdateStatus moves a task to status, replaces its result data when
	// resultData is non-nil, refreshes updated_at and returns the stored row.
	// The check that the task has not finished is atomic with the write.
	// Returns ErrTaskNotFound if the task does not exist and
	// domain.ErrInvalidTransition if it is completed or failed.
	UpdateStatus(
		ctx context.Context,
		id int64,
		status domain.TaskStatus,
		resultData domain.ResultData,
	) (*domain.Task, error)

	// ListStale returns tasks in status whose updated_at is older than olderThan.
	ListStale(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)
}
