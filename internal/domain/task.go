package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the lifecycle state of a tracked task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Validation errors for Task
var (
	ErrEmptyTaskAgentID = errors.New("task agent ID cannot be empty")
	ErrEmptyTaskName    = errors.New("task name cannot be empty")
)

// ResultData is the opaque structured payload attached to a task.
type ResultData map[string]any

// Task represents one unit of orchestrated work. AgentID is both the logical
// owner of the task and the routing key for live updates.
type Task struct {
	ID         int64      `json:"id"`
	AgentID    string     `json:"agent_id"`
	TaskName   string     `json:"task_name"`
	Status     TaskStatus `json:"status"`
	ResultData ResultData `json:"result_data,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewTask creates a task in the given status (pending when empty), stamping both
// timestamps. The ID is left zero; it is assigned by the task store.
func NewTask(agentID, taskName string, status TaskStatus, resultData ResultData) (*Task, error) {
	if status == "" {
		status = TaskStatusPending
	}

	now := time.Now().UTC()
	task := &Task{
		AgentID:    agentID,
		TaskName:   taskName,
		Status:     status,
		ResultData: resultData,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.AgentID) == "" {
		return ErrEmptyTaskAgentID
	}

	if strings.TrimSpace(t.TaskName) == "" {
		return ErrEmptyTaskName
	}

	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, t.Status)
	}

	return nil
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CheckTransition returns an error when a task currently in from may not move to to.
// Terminal states are never left; every other move, including staying in the same
// non-terminal state to refresh the result payload, is allowed.
func CheckTransition(from, to TaskStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ApplyStatus moves the task to status, replacing the result payload when one is
// supplied, and refreshes UpdatedAt.
func (t *Task) ApplyStatus(status TaskStatus, resultData ResultData) error {
	if err := CheckTransition(t.Status, status); err != nil {
		return err
	}

	t.Status = status
	if resultData != nil {
		t.ResultData = resultData
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}
