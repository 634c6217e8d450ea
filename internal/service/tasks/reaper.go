package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reaper periodically fails tasks that have been running for longer than a
// configured maximum. A zero maximum disables it.
type Reaper struct {
	svc        Service
	maxRunning time.Duration
	interval   time.Duration
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a Reaper. interval defaults to a minute when not positive.
func NewReaper(svc Service, maxRunning, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		svc:        svc,
		maxRunning: maxRunning,
		interval:   interval,
		logger:     logger.With(slog.String("component", "task_reaper")),
	}
}

// Enabled reports whether a maximum running time is configured.
func (r *Reaper) Enabled() bool {
	return r.maxRunning > 0
}

// Start launches the background loop. It does nothing when the reaper is disabled.
func (r *Reaper) Start() {
	if !r.Enabled() {
		r.logger.Debug("task reaper disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("task reaper started",
		slog.Duration("max_running", r.maxRunning),
		slog.Duration("interval", r.interval))
}

// Stop ends the loop and waits for it.
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many tasks were failed.
func (r *Reaper) Sweep(ctx context.Context) int {
	n, err := r.svc.FailStaleTasks(ctx, r.maxRunning)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		r.logger.Warn("failed tasks stuck in running state", slog.Int("count", n))
	}
	return n
}
