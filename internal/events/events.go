package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/engage-api/internal/domain"
)

// TaskEventType names what happened to a task.
type TaskEventType string

const (
	// TaskCreated is emitted after a task row is first persisted.
	TaskCreated TaskEventType = "task_created"
	// TaskUpdated is emitted after a status or payload change is persisted.
	TaskUpdated TaskEventType = "task_updated"
)

// TaskEvent describes a persisted change to a task. Task is a snapshot of the
// stored row at the time of the change.
type TaskEvent struct {
	ID        uuid.UUID
	Type      TaskEventType
	Task      *domain.Task
	Message   string
	CreatedAt time.Time
}

// NewTaskEvent creates a TaskEvent for task with a fresh ID.
func NewTaskEvent(eventType TaskEventType, task *domain.Task, message string) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Task:      task,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// ErrorMessage returns the "error" entry of a failed task's result payload, if any.
func (e *TaskEvent) ErrorMessage() string {
	if e.Task == nil || e.Task.Status != domain.TaskStatusFailed {
		return ""
	}
	msg, _ := e.Task.ResultData["error"].(string)
	return msg
}

// EventHandler defines an interface for components that react to task events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
