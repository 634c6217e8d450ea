package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/engage-api/internal/api/shared"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/engage"
	"github.com/phrazzld/engage-api/internal/orchestrator"
)

// Flows starts the engagement flows behind the trigger endpoints.
type Flows interface {
	ScrapeSubreddit(ctx context.Context, req engage.ScrapeRequest) (*domain.Task, error)
	GeneratePost(ctx context.Context, agentID string, postID int64) (*domain.Task, error)
	PublishPost(ctx context.Context, agentID string, postID int64, targets []string) (*domain.Task, error)
	ReplyToComment(ctx context.Context, agentID string, commentID int64, content string) (*domain.Task, error)
}

// PostHandler serves post reads and the scrape, generate and publish triggers.
type PostHandler struct {
	bus    *dispatch.Bus
	flows  Flows
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(bus *dispatch.Bus, flows Flows, logger *slog.Logger) *PostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{
		bus:    bus,
		flows:  flows,
		logger: logger.With(slog.String("component", "post_handler")),
	}
}

// decodeAndValidate reads the request body into req and validates it,
// writing a 400 response and returning false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// ScrapeSubreddit handles POST /api/subreddits/{name}/scrape.
func (h *PostHandler) ScrapeSubreddit(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.flows.ScrapeSubreddit(r.Context(), engage.ScrapeRequest{
		AgentID:    req.AgentID,
		LeadID:     req.LeadID,
		Subreddit:  chi.URLParam(r, "name"),
		TimeFilter: req.TimeFilter,
		Limit:      req.Limit,
	})
	h.respondAccepted(w, r, task, err)
}

// GeneratePost handles POST /api/posts/{id}/generate.
func (h *PostHandler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	postID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req GenerateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.flows.GeneratePost(r.Context(), req.AgentID, postID)
	h.respondAccepted(w, r, task, err)
}

// PublishPost handles POST /api/posts/{id}/publish.
func (h *PostHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	postID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req PublishRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.flows.PublishPost(r.Context(), req.AgentID, postID, req.Subreddits)
	h.respondAccepted(w, r, task, err)
}

// ReplyToComment handles POST /api/comments/{id}/reply.
func (h *PostHandler) ReplyToComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req ReplyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.flows.ReplyToComment(r.Context(), req.AgentID, commentID, req.Content)
	h.respondAccepted(w, r, task, err)
}

// respondAccepted answers a trigger. A task created before a failed
// submission is still reported, with the error, so the client can follow it.
func (h *PostHandler) respondAccepted(w http.ResponseWriter, r *http.Request, task *domain.Task, err error) {
	if err != nil {
		if task != nil {
			h.logger.Warn("task created but not started",
				slog.Int64("task_id", task.ID),
				slog.String("error", err.Error()))
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(task))
}

// GetPost handles GET /api/posts/{id}.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	post, err := dispatch.Ask[*domain.Post](r.Context(), h.bus, engage.GetPost{PostID: postID})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := postToResponse(post)
	if post.GeneratedTitle != "" {
		resp.PublishedTo, err = dispatch.Ask[[]string](r.Context(), h.bus, orchestrator.ListCompletedTargets{
			OwnerID:         post.LeadID,
			ContentIdentity: post.GeneratedTitle,
		})
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListPostComments handles GET /api/posts/{id}/comments.
func (h *PostHandler) ListPostComments(w http.ResponseWriter, r *http.Request) {
	postID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	skip, limit, err := getPage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := dispatch.Ask[*domain.Post](r.Context(), h.bus, engage.GetPost{PostID: postID}); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	comments, err := dispatch.Ask[[]*domain.Comment](r.Context(), h.bus, engage.ListPostComments{
		PostID: postID,
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, commentsToResponse(comments))
}

// ListLeadPosts handles GET /api/leads/{leadID}/posts.
func (h *PostHandler) ListLeadPosts(w http.ResponseWriter, r *http.Request) {
	leadID, err := getPathID(r, "leadID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	skip, limit, err := getPage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	posts, err := dispatch.Ask[[]*domain.Post](r.Context(), h.bus, engage.ListPostsByLead{
		LeadID: leadID,
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, postsToResponse(posts))
}
