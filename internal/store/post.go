package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/engage-api/internal/domain"
)

// PostStore defines the interface for scraped/generated post persistence.
type PostStore interface {
	// Create saves a new post and assigns its ID.
	// Returns ErrDuplicate if the lead already has a post with the same URL.
	Create(ctx context.Context, post *domain.Post) error

	// GetByID retrieves a post by its ID.
	// Returns ErrPostNotFound if the post does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Post, error)

	// ListByLead returns up to limit posts for a lead ordered by id, skipping offset.
	ListByLead(ctx context.Context, leadID int64, offset, limit int) ([]*domain.Post, error)

	// SaveGenerated stores generated title and content and marks the post AI-generated.
	// Returns ErrPostNotFound if the post does not exist.
	SaveGenerated(ctx context.Context, id int64, title, content string) error

	// MarkPosted flags the post as published and records the latest permalink.
	// Returns ErrPostNotFound if the post does not exist.
	MarkPosted(ctx context.Context, id int64, postedURL string) error

	// WithTx returns a new PostStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PostStore
}
