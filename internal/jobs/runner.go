package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrRunnerStopped is passed to OnAbandon for jobs still queued when the runner stops.
var ErrRunnerStopped = errors.New("job runner stopped")

// ErrJobPanicked wraps the value recovered from a panicking job.
var ErrJobPanicked = errors.New("job panicked")

// Config holds configuration for the runner.
type Config struct {
	// WorkerCount determines how many jobs run concurrently.
	WorkerCount int

	// QueueSize determines the buffer size of the queue.
	QueueSize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Runner manages background job processing.
type Runner struct {
	queue      *Queue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger
	errHandler func(job Job, err error)

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRunner creates a new Runner. Call Start before submitting work.
func NewRunner(config Config, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "job_runner"))

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		queue:      NewQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
	}
	r.errHandler = func(job Job, err error) {
		r.logger.Error("job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("job_name", job.Name),
			slog.String("error", err.Error()))
	}
	return r
}

// SetErrorHandler replaces the default error handler, which logs.
// It must be called before Start.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit adds a job to the queue without blocking.
func (r *Runner) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no run function", job.Name)
	}
	return r.queue.Enqueue(job)
}

// Start launches the worker pool. Calling it again has no effect.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		for i := 0; i < r.config.WorkerCount; i++ {
			r.wg.Add(1)
			go r.worker(i)
		}
		r.logger.Info("job runner started",
			slog.Int("workers", r.config.WorkerCount),
			slog.Int("queue_size", r.config.QueueSize))
	})
}

// Stop refuses new jobs, cancels the context of running jobs and waits for
// the workers to return. Jobs still queued are abandoned with ErrRunnerStopped.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.queue.Close()
		r.cancelFunc()
		r.wg.Wait()

		abandoned := 0
		for job := range r.queue.Jobs() {
			job.abandon(ErrRunnerStopped)
			abandoned++
		}
		r.logger.Info("job runner stopped", slog.Int("abandoned_jobs", abandoned))
	})
}

// worker processes jobs from the queue until the runner stops.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job, ok := <-r.queue.Jobs():
			if !ok {
				return
			}
			if r.ctx.Err() != nil {
				job.abandon(ErrRunnerStopped)
				continue
			}
			r.process(job, id)
		}
	}
}

// process runs a single job, converting a panic into an error.
func (r *Runner) process(job Job, workerID int) {
	log := r.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("job_name", job.Name),
		slog.Int("worker_id", workerID),
	)

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("job panicked",
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())))
				err = fmt.Errorf("%w: %v", ErrJobPanicked, p)
			}
		}()
		return job.Run(r.ctx)
	}()

	if err != nil {
		r.errHandler(job, err)
		return
	}
	log.Debug("job finished", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
