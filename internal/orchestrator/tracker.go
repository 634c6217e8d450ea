package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/service/tasks"
)

// ErrWorkPanicked wraps the value recovered from panicking work.
var ErrWorkPanicked = errors.New("work panicked")

// Work is the body of a tracked task. Its result becomes the task's result
// data on success; an error fails the task.
type Work func(ctx context.Context) (domain.ResultData, error)

// Tracker records the lifecycle of work as a task, through the bus.
type Tracker struct {
	bus    *dispatch.Bus
	logger *slog.Logger
}

// NewTracker creates a Tracker dispatching task commands on bus.
func NewTracker(bus *dispatch.Bus, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{bus: bus, logger: logger.With(slog.String("component", "task_tracker"))}
}

// Begin creates the pending task for work owned by agentID.
func (t *Tracker) Begin(ctx context.Context, agentID, taskName string) (*domain.Task, error) {
	return dispatch.Send[*domain.Task](ctx, t.bus, tasks.CreateTask{
		AgentID:  agentID,
		TaskName: taskName,
	})
}

// Execute moves the task to running, performs work and records the outcome.
// A panic in work is recovered and recorded as a failure. The returned error
// is work's error, or the error of a status update that could not be saved.
func (t *Tracker) Execute(ctx context.Context, taskID int64, work Work) error {
	log := logger.FromContextOrDefault(ctx, t.logger).With(slog.Int64("task_id", taskID))

	if _, err := t.update(ctx, taskID, domain.TaskStatusRunning, nil, "started"); err != nil {
		return fmt.Errorf("failed to mark task %d running: %w", taskID, err)
	}

	result, err := t.perform(ctx, work, log)
	if err != nil {
		log.Error("task failed", slog.String("error", err.Error()))
		if failErr := t.Fail(ctx, taskID, err); failErr != nil {
			return errors.Join(err, failErr)
		}
		return err
	}

	if _, err := t.update(ctx, taskID, domain.TaskStatusCompleted, result, "completed"); err != nil {
		return fmt.Errorf("failed to mark task %d completed: %w", taskID, err)
	}
	log.Info("task completed")
	return nil
}

// Fail records cause as the task's error and marks it failed.
func (t *Tracker) Fail(ctx context.Context, taskID int64, cause error) error {
	_, err := t.update(ctx, taskID, domain.TaskStatusFailed,
		domain.ResultData{"error": cause.Error()}, cause.Error())
	return err
}

func (t *Tracker) perform(ctx context.Context, work Work, log *slog.Logger) (result domain.ResultData, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("task work panicked",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			result = nil
			err = fmt.Errorf("%w: %v", ErrWorkPanicked, p)
		}
	}()
	return work(ctx)
}

// update writes a status change. Status writes outlive cancellation of ctx so
// that a stopping runner still leaves tasks in a final state.
func (t *Tracker) update(
	ctx context.Context,
	taskID int64,
	status domain.TaskStatus,
	resultData domain.ResultData,
	message string,
) (*domain.Task, error) {
	return dispatch.Send[*domain.Task](context.WithoutCancel(ctx), t.bus, tasks.UpdateTaskStatus{
		TaskID:     taskID,
		Status:     status,
		ResultData: resultData,
		Message:    message,
	})
}
