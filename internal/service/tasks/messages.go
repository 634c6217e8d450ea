package tasks

import (
	"context"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
)

// CreateTask is the command behind Service.CreateTask.
type CreateTask struct {
	AgentID    string
	TaskName   string
	Status     domain.TaskStatus
	ResultData domain.ResultData
}

// UpdateTaskStatus is the command behind Service.UpdateTaskStatus.
type UpdateTaskStatus struct {
	TaskID     int64
	Status     domain.TaskStatus
	ResultData domain.ResultData
	Message    string
}

// GetTask is the query behind Service.GetTask.
type GetTask struct {
	TaskID int64
}

// ListTasks is the query behind Service.ListTasks.
type ListTasks struct {
	Skip  int
	Limit int
}

// ListTasksByAgent is the query behind Service.ListTasksByAgent.
type ListTasksByAgent struct {
	AgentID string
	Skip    int
	Limit   int
}

// Register binds the task commands and queries to svc on bus.
func Register(bus *dispatch.Bus, svc Service) error {
	regs := []func() error{
		func() error {
			return dispatch.RegisterCommand(bus, func(ctx context.Context, c CreateTask) (*domain.Task, error) {
				return svc.CreateTask(ctx, c.AgentID, c.TaskName, c.Status, c.ResultData)
			})
		},
		func() error {
			return dispatch.RegisterCommand(bus, func(ctx context.Context, c UpdateTaskStatus) (*domain.Task, error) {
				return svc.UpdateTaskStatus(ctx, c.TaskID, c.Status, c.ResultData, c.Message)
			})
		},
		func() error {
			return dispatch.RegisterQuery(bus, func(ctx context.Context, q GetTask) (*domain.Task, error) {
				return svc.GetTask(ctx, q.TaskID)
			})
		},
		func() error {
			return dispatch.RegisterQuery(bus, func(ctx context.Context, q ListTasks) ([]*domain.Task, error) {
				return svc.ListTasks(ctx, q.Skip, q.Limit)
			})
		},
		func() error {
			return dispatch.RegisterQuery(bus, func(ctx context.Context, q ListTasksByAgent) ([]*domain.Task, error) {
				return svc.ListTasksByAgent(ctx, q.AgentID, q.Skip, q.Limit)
			})
		},
	}
	for _, reg := range regs {
		if err := reg(); err != nil {
			return err
		}
	}
	return nil
}
