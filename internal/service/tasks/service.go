package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/events"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/store"
)

// Service provides the task lifecycle operations.
type Service interface {
	// CreateTask persists a new task (pending when status is empty) and announces it.
	CreateTask(
		ctx context.Context,
		agentID, taskName string,
		status domain.TaskStatus,
		resultData domain.ResultData,
	) (*domain.Task, error)

	// GetTask returns the task or store.ErrTaskNotFound.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// ListTasks returns tasks ordered by id.
	ListTasks(ctx context.Context, skip, limit int) ([]*domain.Task, error)

	// ListTasksByAgent returns the agent's tasks ordered by id.
	ListTasksByAgent(ctx context.Context, agentID string, skip, limit int) ([]*domain.Task, error)

	// UpdateTaskStatus moves the task to status, replacing its result data
	// when resultData is non-nil, and announces the new snapshot with message.
	// Tasks in a terminal state are not changed and domain.ErrInvalidTransition
	// is returned.
	UpdateTaskStatus(
		ctx context.Context,
		id int64,
		status domain.TaskStatus,
		resultData domain.ResultData,
		message string,
	) (*domain.Task, error)

	// FailStaleTasks fails every task that has been running for longer than
	// maxRunning and returns how many were failed.
	FailStaleTasks(ctx context.Context, maxRunning time.Duration) (int, error)
}

type serviceImpl struct {
	store   store.TaskStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewService creates a task Service.
// It returns an error if any of the required dependencies are nil.
func NewService(taskStore store.TaskStore, emitter events.EventEmitter, logger *slog.Logger) (Service, error) {
	if taskStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		store:   taskStore,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *serviceImpl) CreateTask(
	ctx context.Context,
	agentID, taskName string,
	status domain.TaskStatus,
	resultData domain.ResultData,
) (*domain.Task, error) {
	task, err := domain.NewTask(agentID, taskName, status, resultData)
	if err != nil {
		return nil, NewServiceError("create_task", "invalid task", err)
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, NewServiceError("create_task", "failed to save task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("agent_id", task.AgentID),
		slog.String("task_name", task.TaskName),
		slog.String("status", string(task.Status)))

	s.announce(ctx, events.TaskCreated, task, "")
	return task, nil
}

func (s *serviceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

func (s *serviceImpl) ListTasks(ctx context.Context, skip, limit int) ([]*domain.Task, error) {
	if err := checkPage(skip, limit); err != nil {
		return nil, err
	}
	tasks, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *serviceImpl) ListTasksByAgent(ctx context.Context, agentID string, skip, limit int) ([]*domain.Task, error) {
	if err := checkPage(skip, limit); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListByAgent(ctx, agentID, skip, limit)
	if err != nil {
		return nil, NewServiceError("list_tasks_by_agent", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *serviceImpl) UpdateTaskStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
	resultData domain.ResultData,
	message string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.Int64("task_id", id))

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("update_task_status", "failed to load task", err)
	}
	if err := domain.CheckTransition(current.Status, status); err != nil {
		log.Warn("rejected task status change",
			slog.String("from", string(current.Status)),
			slog.String("to", string(status)))
		return nil, err
	}

	// The store repeats the terminal check atomically; the task may have
	// finished since it was read.
	updated, err := s.store.UpdateStatus(ctx, id, status, resultData)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn("rejected task status change, task finished concurrently",
				slog.String("to", string(status)))
		}
		return nil, NewServiceError("update_task_status", "failed to save task status", err)
	}

	log.Info("task status updated",
		slog.String("from", string(current.Status)),
		slog.String("to", string(updated.Status)))

	s.announce(ctx, events.TaskUpdated, updated, message)
	return updated, nil
}

func (s *serviceImpl) FailStaleTasks(ctx context.Context, maxRunning time.Duration) (int, error) {
	stale, err := s.store.ListStale(ctx, domain.TaskStatusRunning, maxRunning)
	if err != nil {
		return 0, NewServiceError("fail_stale_tasks", "failed to list stale tasks", err)
	}

	failed := 0
	for _, task := range stale {
		reason := fmt.Sprintf("task exceeded maximum running time of %s", maxRunning)
		_, err := s.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusFailed,
			domain.ResultData{"error": reason}, reason)
		if err != nil {
			// The task may have finished between listing and updating.
			if !errors.Is(err, domain.ErrInvalidTransition) {
				s.logger.Error("failed to fail stale task",
					slog.Int64("task_id", task.ID),
					slog.String("error", err.Error()))
			}
			continue
		}
		failed++
	}
	return failed, nil
}

// announce publishes a change. Failures are logged and swallowed: the change
// is already persisted and live updates are best effort.
func (s *serviceImpl) announce(ctx context.Context, typ events.TaskEventType, task *domain.Task, message string) {
	if err := s.emitter.EmitEvent(ctx, events.NewTaskEvent(typ, task, message)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to announce task change",
			slog.Int64("task_id", task.ID),
			slog.String("agent_id", task.AgentID),
			slog.String("error", err.Error()))
	}
}

func checkPage(skip, limit int) error {
	if skip < 0 || limit < 0 {
		return fmt.Errorf("%w: skip and limit must not be negative", domain.ErrValidation)
	}
	return nil
}
