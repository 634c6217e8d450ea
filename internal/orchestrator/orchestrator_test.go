package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_RunsInBackground(t *testing.T) {
	f := newFixture(t)
	runner := jobs.NewRunner(jobs.Config{WorkerCount: 1, QueueSize: 4}, discardLogger())
	runner.Start()
	defer runner.Stop()

	release := make(chan struct{})
	task, err := f.orchestrator(runner).Start(context.Background(), Job{
		AgentID:  "abc",
		TaskName: "scrape",
		Work: func(ctx context.Context) (domain.ResultData, error) {
			<-release
			return domain.ResultData{"count": 3}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status, "Start returns before the work finishes")

	close(release)
	assert.Eventually(t, func() bool {
		return f.task(t, task.ID).Status == domain.TaskStatusCompleted
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.ResultData{"count": 3}, f.task(t, task.ID).ResultData)
}

func TestStart_RefusedSubmissionFailsTask(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(refusingSubmitter{err: jobs.ErrQueueFull})

	task, err := o.Start(context.Background(), Job{
		AgentID:  "abc",
		TaskName: "scrape",
		Work:     func(context.Context) (domain.ResultData, error) { return nil, nil },
	})

	assert.ErrorIs(t, err, jobs.ErrQueueFull)
	require.NotNil(t, task)
	got := f.task(t, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, jobs.ErrQueueFull.Error(), got.ResultData["error"])
}

func TestStart_AbandonedJobFailsTask(t *testing.T) {
	f := newFixture(t)
	runner := jobs.NewRunner(jobs.Config{WorkerCount: 1, QueueSize: 4}, discardLogger())

	ran := false
	task, err := f.orchestrator(runner).Start(context.Background(), Job{
		AgentID:  "abc",
		TaskName: "scrape",
		Work: func(context.Context) (domain.ResultData, error) {
			ran = true
			return nil, nil
		},
	})
	require.NoError(t, err)

	runner.Stop()

	assert.False(t, ran)
	got := f.task(t, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, jobs.ErrRunnerStopped.Error(), got.ResultData["error"])
}

func TestStart_InvalidJobCreatesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator(syncSubmitter{}).Start(context.Background(), Job{TaskName: "scrape"})
	assert.ErrorIs(t, err, domain.ErrEmptyTaskAgentID)

	all, err := f.svc.ListTasks(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStartTargets_RequiresAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator(syncSubmitter{}).StartTargets(context.Background(), "abc", "publish", TargetRun{})
	assert.ErrorIs(t, err, ErrNoAction)
}
