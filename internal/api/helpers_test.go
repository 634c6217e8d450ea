package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/engage-api/internal/broadcast"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/engage"
	"github.com/phrazzld/engage-api/internal/events"
	"github.com/phrazzld/engage-api/internal/orchestrator"
	"github.com/phrazzld/engage-api/internal/platform/memory"
	"github.com/phrazzld/engage-api/internal/service/tasks"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFlows records the trigger calls it receives and answers with task or err.
type fakeFlows struct {
	mu        sync.Mutex
	scrapeReq engage.ScrapeRequest
	agentID   string
	postID    int64
	targets   []string
	commentID int64
	content   string
	calls     int

	task *domain.Task
	err  error
}

func (f *fakeFlows) ScrapeSubreddit(_ context.Context, req engage.ScrapeRequest) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.scrapeReq = req
	return f.task, f.err
}

func (f *fakeFlows) GeneratePost(_ context.Context, agentID string, postID int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.agentID, f.postID = agentID, postID
	return f.task, f.err
}

func (f *fakeFlows) PublishPost(_ context.Context, agentID string, postID int64, targets []string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.agentID, f.postID, f.targets = agentID, postID, targets
	return f.task, f.err
}

func (f *fakeFlows) ReplyToComment(_ context.Context, agentID string, commentID int64, content string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.agentID, f.commentID, f.content = agentID, commentID, content
	return f.task, f.err
}

type fixture struct {
	router      http.Handler
	tasks       tasks.Service
	posts       *memory.PostStore
	comments    *memory.CommentStore
	completions *memory.CompletionStore
	hub         *broadcast.Hub
	flows       *fakeFlows
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hub := broadcast.NewHub(discardLogger())
	t.Cleanup(hub.Close)
	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(broadcast.NewTaskEventHandler(hub))

	svc, err := tasks.NewService(memory.NewTaskStore(), emitter, discardLogger())
	require.NoError(t, err)
	posts := memory.NewPostStore()
	comments := memory.NewCommentStore()
	completions := memory.NewCompletionStore()

	bus := dispatch.NewBus()
	require.NoError(t, tasks.Register(bus, svc))
	require.NoError(t, engage.RegisterPosts(bus, engage.Stores{Posts: posts, Comments: comments}, discardLogger()))
	require.NoError(t, orchestrator.RegisterCompletions(bus, completions))
	bus.Seal()

	flows := &fakeFlows{}
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		RegisterRoutes(r,
			NewTaskHandler(bus, hub, discardLogger()),
			NewPostHandler(bus, flows, discardLogger()))
	})

	return &fixture{
		router:      r,
		tasks:       svc,
		posts:       posts,
		comments:    comments,
		completions: completions,
		hub:         hub,
		flows:       flows,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}
