package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/jobs"
	"github.com/phrazzld/engage-api/internal/platform/logger"
)

// Submitter accepts background jobs without blocking.
type Submitter interface {
	Submit(job jobs.Job) error
}

// Job is a unit of tracked background work owned by AgentID.
type Job struct {
	AgentID  string
	TaskName string
	Work     Work
}

// Orchestrator starts tracked work in the background.
type Orchestrator struct {
	bus     *dispatch.Bus
	runner  Submitter
	pacer   Pacer
	tracker *Tracker
	logger  *slog.Logger
}

// New creates an Orchestrator. A nil pacer means no pacing.
func New(bus *dispatch.Bus, runner Submitter, pacer Pacer, logger *slog.Logger) *Orchestrator {
	if pacer == nil {
		pacer = FixedPacer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		bus:     bus,
		runner:  runner,
		pacer:   pacer,
		tracker: NewTracker(bus, logger),
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// Start creates the job's pending task and hands the work to the runner.
// It returns as soon as the task exists. When the runner refuses the job the
// task is marked failed and the submission error is returned.
func (o *Orchestrator) Start(ctx context.Context, job Job) (*domain.Task, error) {
	task, err := o.tracker.Begin(ctx, job.AgentID, job.TaskName)
	if err != nil {
		return nil, err
	}

	log := logger.FromContextOrDefault(ctx, o.logger).With(
		slog.Int64("task_id", task.ID),
		slog.String("task_name", task.TaskName))
	requestID := logger.RequestIDFromContext(ctx)

	bg := jobs.NewJob(fmt.Sprintf("%s#%d", job.TaskName, task.ID), func(runCtx context.Context) error {
		runCtx = logger.WithLogger(runCtx, log)
		if requestID != "" {
			runCtx = logger.WithRequestID(runCtx, requestID)
		}
		return o.tracker.Execute(runCtx, task.ID, job.Work)
	})
	bg.OnAbandon = func(cause error) {
		log.Warn("job abandoned before start", slog.String("error", cause.Error()))
		if err := o.tracker.Fail(context.Background(), task.ID, cause); err != nil {
			log.Error("failed to mark abandoned task failed", slog.String("error", err.Error()))
		}
	}

	if err := o.runner.Submit(bg); err != nil {
		log.Error("failed to submit job", slog.String("error", err.Error()))
		if failErr := o.tracker.Fail(ctx, task.ID, err); failErr != nil {
			log.Error("failed to mark unsubmitted task failed", slog.String("error", failErr.Error()))
		}
		return task, fmt.Errorf("failed to start %s: %w", job.TaskName, err)
	}

	log.Info("task submitted")
	return task, nil
}

// StartTargets starts run as tracked background work.
func (o *Orchestrator) StartTargets(ctx context.Context, agentID, taskName string, run TargetRun) (*domain.Task, error) {
	if run.Action == nil {
		return nil, ErrNoAction
	}
	return o.Start(ctx, Job{
		AgentID:  agentID,
		TaskName: taskName,
		Work: func(ctx context.Context) (domain.ResultData, error) {
			return o.RunTargets(ctx, run)
		},
	})
}
