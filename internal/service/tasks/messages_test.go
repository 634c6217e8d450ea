package tasks

import (
	"context"
	"testing"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_RoutesThroughBus(t *testing.T) {
	f := newFixture(t)
	bus := dispatch.NewBus()
	require.NoError(t, Register(bus, f.svc))
	bus.Seal()
	ctx := context.Background()

	task, err := dispatch.Send[*domain.Task](ctx, bus, CreateTask{AgentID: "x", TaskName: "scrape"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	_, err = dispatch.Send[*domain.Task](ctx, bus, UpdateTaskStatus{
		TaskID:     task.ID,
		Status:     domain.TaskStatusCompleted,
		ResultData: domain.ResultData{"count": 3},
	})
	require.NoError(t, err)

	got, err := dispatch.Ask[*domain.Task](ctx, bus, GetTask{TaskID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultData{"count": 3}, got.ResultData)

	list, err := dispatch.Ask[[]*domain.Task](ctx, bus, ListTasksByAgent{AgentID: "x", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	all, err := dispatch.Ask[[]*domain.Task](ctx, bus, ListTasks{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegister_Twice(t *testing.T) {
	f := newFixture(t)
	bus := dispatch.NewBus()
	require.NoError(t, Register(bus, f.svc))

	assert.ErrorIs(t, Register(bus, f.svc), dispatch.ErrDuplicateHandler)
}

type unknownQuery struct{}

func TestUnregisteredQueryLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	bus := dispatch.NewBus()
	require.NoError(t, Register(bus, f.svc))

	_, err := dispatch.Ask[any](context.Background(), bus, unknownQuery{})
	assert.ErrorIs(t, err, dispatch.ErrUnregisteredType)

	all, err := f.svc.ListTasks(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
