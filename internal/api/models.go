package api

import (
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
)

// ScrapeRequest is the body of POST /api/subreddits/{name}/scrape.
type ScrapeRequest struct {
	AgentID    string `json:"agent_id"    validate:"required"`
	LeadID     int64  `json:"lead_id"     validate:"gt=0"`
	TimeFilter string `json:"time_filter" validate:"omitempty,oneof=hour day week month year all"`
	Limit      int    `json:"limit"       validate:"gte=0,lte=100"`
}

// GenerateRequest is the body of POST /api/posts/{id}/generate.
type GenerateRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// PublishRequest is the body of POST /api/posts/{id}/publish. Subreddits
// defaults to the configured targets when empty; blank entries are reported
// as failed targets of the task rather than rejected here.
type PublishRequest struct {
	AgentID    string   `json:"agent_id"   validate:"required"`
	Subreddits []string `json:"subreddits"`
}

// ReplyRequest is the body of POST /api/comments/{id}/reply.
type ReplyRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
	Content string `json:"content"  validate:"required"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID         int64             `json:"id"`
	AgentID    string            `json:"agent_id"`
	TaskName   string            `json:"task_name"`
	Status     domain.TaskStatus `json:"status"`
	ResultData domain.ResultData `json:"result_data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// PostResponse is the wire form of a post.
type PostResponse struct {
	ID               int64     `json:"id"`
	LeadID           int64     `json:"lead_id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Author           string    `json:"author"`
	URL              string    `json:"url"`
	Subreddit        string    `json:"subreddit"`
	Score            int       `json:"score"`
	NumComments      int       `json:"num_comments"`
	GeneratedTitle   string    `json:"generated_title,omitempty"`
	GeneratedContent string    `json:"generated_content,omitempty"`
	AIGenerated      bool      `json:"ai_generated"`
	IsPosted         bool      `json:"is_posted"`
	PostedURL        string    `json:"posted_url,omitempty"`
	// PublishedTo lists the subreddits the generated content was published
	// to for the post's lead. Only single-post reads fill it.
	PublishedTo      []string  `json:"published_to,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CommentResponse is the wire form of a stored thread comment.
type CommentResponse struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"post_id"`
	CommentID    string    `json:"comment_id"`
	Author       string    `json:"author"`
	Content      string    `json:"content"`
	Score        int       `json:"score"`
	Permalink    string    `json:"permalink"`
	IsReplied    bool      `json:"is_replied"`
	ReplyContent string    `json:"reply_content,omitempty"`
	RepliedURL   string    `json:"replied_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:         t.ID,
		AgentID:    t.AgentID,
		TaskName:   t.TaskName,
		Status:     t.Status,
		ResultData: t.ResultData,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func tasksToResponse(ts []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, taskToResponse(t))
	}
	return out
}

func postToResponse(p *domain.Post) PostResponse {
	return PostResponse{
		ID:               p.ID,
		LeadID:           p.LeadID,
		Title:            p.Title,
		Content:          p.Content,
		Author:           p.Author,
		URL:              p.URL,
		Subreddit:        p.Subreddit,
		Score:            p.Score,
		NumComments:      p.NumComments,
		GeneratedTitle:   p.GeneratedTitle,
		GeneratedContent: p.GeneratedContent,
		AIGenerated:      p.AIGenerated,
		IsPosted:         p.IsPosted,
		PostedURL:        p.PostedURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func postsToResponse(ps []*domain.Post) []PostResponse {
	out := make([]PostResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, postToResponse(p))
	}
	return out
}

func commentsToResponse(cs []*domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, CommentResponse{
			ID:           c.ID,
			PostID:       c.PostID,
			CommentID:    c.CommentID,
			Author:       c.Author,
			Content:      c.Content,
			Score:        c.Score,
			Permalink:    c.Permalink,
			IsReplied:    c.IsReplied,
			ReplyContent: c.ReplyContent,
			RepliedURL:   c.RepliedURL,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	return out
}
