package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/events"
)

// MessageTypeTaskUpdate is the type tag of every task update message.
const MessageTypeTaskUpdate = "task_update"

// TaskUpdate is the JSON message pushed to clients when one of their tasks changes.
type TaskUpdate struct {
	Type     string            `json:"type"`
	TaskID   int64             `json:"taskId"`
	Status   domain.TaskStatus `json:"status"`
	TaskName string            `json:"taskName,omitempty"`
	Message  string            `json:"message,omitempty"`
	Error    string            `json:"error,omitempty"`
	Task     *domain.Task      `json:"task"`
}

// NewTaskUpdate builds the message for a task event.
func NewTaskUpdate(event *events.TaskEvent) TaskUpdate {
	return TaskUpdate{
		Type:     MessageTypeTaskUpdate,
		TaskID:   event.Task.ID,
		Status:   event.Task.Status,
		TaskName: event.Task.TaskName,
		Message:  event.Message,
		Error:    event.ErrorMessage(),
		Task:     event.Task,
	}
}

// TaskEventHandler forwards task events to the owning client through a Hub.
// The task's agent id is the routing key.
type TaskEventHandler struct {
	hub *Hub
}

// NewTaskEventHandler creates a handler publishing to hub.
func NewTaskEventHandler(hub *Hub) *TaskEventHandler {
	return &TaskEventHandler{hub: hub}
}

var _ events.EventHandler = (*TaskEventHandler)(nil)

// HandleEvent implements events.EventHandler. Only encoding failures are
// reported; per-channel send failures are absorbed by the Hub.
func (h *TaskEventHandler) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if event.Task == nil {
		return fmt.Errorf("task event %s carries no task", event.ID)
	}
	payload, err := json.Marshal(NewTaskUpdate(event))
	if err != nil {
		return fmt.Errorf("failed to encode task update for task %d: %w", event.Task.ID, err)
	}
	h.hub.BroadcastToClient(ctx, event.Task.AgentID, payload)
	return nil
}
