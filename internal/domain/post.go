package domain

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for Post
var (
	ErrEmptyPostLeadID  = errors.New("post lead ID cannot be empty")
	ErrEmptyPostURL     = errors.New("post URL cannot be empty")
	ErrNoGeneratedPost  = errors.New("post has no generated content")
	ErrPostNotGenerated = errors.New("post is not marked as AI-generated")
)

// Post is a platform post scraped for a lead, optionally carrying AI-generated
// content derived from it and the outcome of publishing that content.
type Post struct {
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
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a scraped post.
func (p *Post) Validate() error {
	if p.LeadID <= 0 {
		return ErrEmptyPostLeadID
	}
	if strings.TrimSpace(p.URL) == "" {
		return ErrEmptyPostURL
	}
	return nil
}

// CheckPublishable returns an error when the post cannot be published: it must
// carry generated content and be marked AI-generated.
func (p *Post) CheckPublishable() error {
	if p.GeneratedTitle == "" || p.GeneratedContent == "" {
		return ErrNoGeneratedPost
	}
	if !p.AIGenerated {
		return ErrPostNotGenerated
	}
	return nil
}

// IsCommentThread reports whether the source URL points at a comment thread,
// in which case generated content is posted as a reply rather than a submission.
func (p *Post) IsCommentThread() bool {
	return strings.Contains(p.URL, "/comments/")
}

// ThreadID extracts the submission ID from a comments permalink
// (".../comments/<id>/..."). It returns "" when the URL has none.
func (p *Post) ThreadID() string {
	_, rest, ok := strings.Cut(p.URL, "/comments/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// TargetCompletion records that an external action succeeded for one target
// channel of an owner's content item.
type TargetCompletion struct {
	OwnerID         int64     `json:"owner_id"`
	ContentIdentity string    `json:"content_identity"`
	Target          string    `json:"target"`
	ExternalRef     string    `json:"external_ref,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}
