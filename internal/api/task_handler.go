package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/engage-api/internal/api/shared"
	"github.com/phrazzld/engage-api/internal/broadcast"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/service/tasks"
)

// TaskHandler serves task reads and the live task-update channel.
type TaskHandler struct {
	bus      *dispatch.Bus
	hub      *broadcast.Hub
	upgrader *websocket.Upgrader
	logger   *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(bus *dispatch.Bus, hub *broadcast.Hub, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		bus:      bus,
		hub:      hub,
		upgrader: broadcast.NewUpgrader(),
		logger:   logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := getPage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := dispatch.Ask[[]*domain.Task](r.Context(), h.bus, tasks.ListTasks{Skip: skip, Limit: limit})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(list))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := dispatch.Ask[*domain.Task](r.Context(), h.bus, tasks.GetTask{TaskID: id})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasksByAgent handles GET /api/tasks/agent/{agentID}.
func (h *TaskHandler) ListTasksByAgent(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := getPage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := dispatch.Ask[[]*domain.Task](r.Context(), h.bus, tasks.ListTasksByAgent{
		AgentID: chi.URLParam(r, "agentID"),
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(list))
}

// Stream handles GET /api/tasks/ws/{clientID}: it upgrades to a websocket
// that receives the updates of every task owned by clientID.
func (h *TaskHandler) Stream(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if strings.TrimSpace(clientID) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Client ID is required")
		return
	}

	h.logger.Debug("client channel connecting", slog.String("client_id", clientID))
	h.hub.ServeWS(w, r, h.upgrader, clientID)
}
