package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/events"
	"github.com/phrazzld/engage-api/internal/jobs"
	"github.com/phrazzld/engage-api/internal/platform/memory"
	"github.com/phrazzld/engage-api/internal/service/tasks"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler keeps the status of every announced task change.
type recordingHandler struct {
	mu       sync.Mutex
	statuses map[int64][]domain.TaskStatus
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = make(map[int64][]domain.TaskStatus)
	}
	h.statuses[event.Task.ID] = append(h.statuses[event.Task.ID], event.Task.Status)
	return nil
}

func (h *recordingHandler) of(taskID int64) []domain.TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.TaskStatus(nil), h.statuses[taskID]...)
}

// syncSubmitter runs jobs on the caller's goroutine.
type syncSubmitter struct{}

func (syncSubmitter) Submit(job jobs.Job) error {
	_ = job.Run(context.Background())
	return nil
}

// refusingSubmitter rejects every job.
type refusingSubmitter struct{ err error }

func (s refusingSubmitter) Submit(jobs.Job) error { return s.err }

// countingPacer counts waits and never blocks.
type countingPacer struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return p.err
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// recordingAction records the targets it was invoked for and fails or
// panics for the configured ones.
type recordingAction struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	panicOn string
}

func (a *recordingAction) run(_ context.Context, target string) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, target)
	a.mu.Unlock()

	if target == a.panicOn {
		panic("platform client exploded")
	}
	if err := a.failFor[target]; err != nil {
		return "", err
	}
	return "https://example.com/r/" + target + "/1", nil
}

func (a *recordingAction) invoked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type fixture struct {
	bus         *dispatch.Bus
	svc         tasks.Service
	completions *memory.CompletionStore
	events      *recordingHandler
	pacer       *countingPacer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	recorder := &recordingHandler{}
	emitter.RegisterHandler(recorder)

	svc, err := tasks.NewService(memory.NewTaskStore(), emitter, discardLogger())
	require.NoError(t, err)

	completions := memory.NewCompletionStore()
	bus := dispatch.NewBus()
	require.NoError(t, tasks.Register(bus, svc))
	require.NoError(t, RegisterCompletions(bus, completions))
	bus.Seal()

	return &fixture{
		bus:         bus,
		svc:         svc,
		completions: completions,
		events:      recorder,
		pacer:       &countingPacer{},
	}
}

func (f *fixture) orchestrator(runner Submitter) *Orchestrator {
	return New(f.bus, runner, f.pacer, discardLogger())
}

func (f *fixture) task(t *testing.T, id int64) *domain.Task {
	t.Helper()
	task, err := f.svc.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task
}
