package generation

import (
	"context"
	"strings"
)

// Source is the scraped post that generated content responds to.
type Source struct {
	Title     string
	Content   string
	Subreddit string
	URL       string
}

// Empty reports whether the source carries no text to respond to.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.Content) == ""
}

// Content is a generated post.
type Content struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generator writes content in response to a source post. It is the boundary
// between the engagement flows and external AI/LLM services.
type Generator interface {
	// Generate returns the generated post or an error (see errors.go).
	Generate(ctx context.Context, src Source) (*Content, error)
}
