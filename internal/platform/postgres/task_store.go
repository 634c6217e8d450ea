package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/store"
)

const taskColumns = `id, agent_id, task_name, status, result_data, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
// result_data is stored as JSONB.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	tasks  recordQuery[domain.Task]
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		tasks: recordQuery[domain.Task]{
			db:       db,
			scan:     scanTask,
			notFound: store.ErrTaskNotFound,
		},
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
		raw    []byte
	)
	if err := row.Scan(&t.ID, &t.AgentID, &t.TaskName, &status, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.ResultData); err != nil {
			return nil, fmt.Errorf("failed to decode result_data of task %d: %w", t.ID, err)
		}
	}
	return &t, nil
}

// encodeResultData returns nil for a nil payload so the column stays NULL.
func encodeResultData(data domain.ResultData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: result_data is not JSON-encodable: %v", store.ErrInvalidEntity, err)
	}
	return b, nil
}

// Create implements store.TaskStore.Create.
// The database assigns the ID; the stored row is copied back into task.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create", slog.String("error", err.Error()))
		return err
	}

	payload, err := encodeResultData(task.ResultData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (agent_id, task_name, status, result_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		RETURNING ` + taskColumns

	created, err := s.tasks.one(ctx, query,
		task.AgentID,
		task.TaskName,
		task.Status,
		payload,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("agent_id", task.AgentID),
			slog.String("task_name", task.TaskName))
		return err
	}

	*task = *created
	log.Debug("task created",
		slog.Int64("task_id", task.ID),
		slog.String("agent_id", task.AgentID),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return s.tasks.one(ctx, query, id)
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(ctx context.Context, offset, limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY id ASC OFFSET $1 LIMIT $2`
	tasks, err := s.tasks.many(ctx, query, offset, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()))
		return nil, err
	}
	return tasks, nil
}

// ListByAgent implements store.TaskStore.ListByAgent.
func (s *PostgresTaskStore) ListByAgent(
	ctx context.Context,
	agentID string,
	offset, limit int,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE agent_id = $1
		ORDER BY id ASC
		OFFSET $2 LIMIT $3`
	tasks, err := s.tasks.many(ctx, query, agentID, offset, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks by agent",
			slog.String("error", err.Error()),
			slog.String("agent_id", agentID))
		return nil, err
	}
	return tasks, nil
}

// UpdateStatus implements store.TaskStore.UpdateStatus.
// A NULL payload parameter keeps the stored result_data. The terminal guard is
// part of the UPDATE, so a task finished concurrently is never overwritten.
func (s *PostgresTaskStore) UpdateStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
	resultData domain.ResultData,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	payload, err := encodeResultData(resultData)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks
		SET status = $2,
		    result_data = COALESCE($3::jsonb, result_data),
		    updated_at = $4
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING ` + taskColumns

	updated, err := s.tasks.one(ctx, query, id, status, payload, time.Now().UTC())
	if err == nil {
		return updated, nil
	}
	if !store.IsNotFoundError(err) {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id),
			slog.String("status", string(status)))
		return nil, err
	}

	// No row matched: either the task is missing or it already finished.
	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		log.Debug("task not found for status update", slog.Int64("task_id", id))
		return nil, store.ErrTaskNotFound
	case err != nil:
		return nil, MapError(err, store.ErrTaskNotFound)
	}
	log.Debug("task already finished",
		slog.Int64("task_id", id),
		slog.String("status", current))
	return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
}

// ListStale implements store.TaskStore.ListStale.
func (s *PostgresTaskStore) ListStale(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY id ASC`
	return s.tasks.many(ctx, query, status, time.Now().UTC().Add(-olderThan))
}
