package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/engage-api/internal/api/shared"
	"github.com/phrazzld/engage-api/internal/broadcast"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []TaskResponse {
	t.Helper()
	var out []TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTaskHandler_GetTask(t *testing.T) {
	f := newFixture(t)
	task, err := f.tasks.CreateTask(context.Background(), "abc", "scrape_subreddit", "", domain.ResultData{"n": 1})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/tasks/1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var got TaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, "abc", got.AgentID)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.EqualValues(t, 1, got.ResultData["n"])
	})

	tests := []struct {
		name    string
		path    string
		status  int
		message string
	}{
		{"unknown id", "/api/tasks/999", http.StatusNotFound, "Task not found"},
		{"malformed id", "/api/tasks/abc", http.StatusBadRequest, "Invalid ID"},
		{"non-positive id", "/api/tasks/0", http.StatusBadRequest, "Invalid ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, w.Code)

			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, agent := range []string{"abc", "def", "abc"} {
		_, err := f.tasks.CreateTask(ctx, agent, "generate_post", "", nil)
		require.NoError(t, err)
	}

	t.Run("all", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/tasks", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeTasks(t, w), 3)
	})

	t.Run("paged", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/tasks?skip=1&limit=1", "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeTasks(t, w)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].ID)
	})

	t.Run("by agent", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/tasks/agent/abc", "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeTasks(t, w)
		require.Len(t, got, 2)
		for _, task := range got {
			assert.Equal(t, "abc", task.AgentID)
		}
	})

	t.Run("unknown agent is empty", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/tasks/agent/nobody", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	for _, query := range []string{"skip=-1", "limit=-5", "skip=x", "limit=1.5"} {
		t.Run("rejects "+query, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/tasks?"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTaskHandler_Stream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/tasks/ws/abc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ConnectionCount("abc") == 1 },
		time.Second, 10*time.Millisecond)

	// Another agent's task must not reach this channel.
	_, err = f.tasks.CreateTask(context.Background(), "def", "scrape_subreddit", "", nil)
	require.NoError(t, err)
	task, err := f.tasks.CreateTask(context.Background(), "abc", "scrape_subreddit", "", nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update broadcast.TaskUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, task.ID, update.TaskID)
	assert.Equal(t, domain.TaskStatusPending, update.Status)
}

func TestTaskHandler_StreamRequiresClientID(t *testing.T) {
	f := newFixture(t)
	h := NewTaskHandler(nil, f.hub, nil)

	r := chi.NewRouter()
	r.Get("/ws/{clientID}", h.Stream)
	req := httptest.NewRequest(http.MethodGet, "/ws/%20", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.hub.ConnectionCount(" "))
}
