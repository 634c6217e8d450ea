package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/engage-api/internal/domain"
)

// CommentStore defines the interface for persisting the comments of scraped posts.
type CommentStore interface {
	// Create saves a new comment and assigns its ID.
	// Returns ErrDuplicate if the post already has a comment with the same platform ID.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID retrieves a comment by its ID.
	// Returns ErrCommentNotFound if the comment does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)

	// ListByPost returns up to limit comments of a post ordered by id, skipping offset.
	ListByPost(ctx context.Context, postID int64, offset, limit int) ([]*domain.Comment, error)

	// MarkReplied records the reply published to a comment.
	// Returns ErrCommentNotFound if the comment does not exist.
	MarkReplied(ctx context.Context, id int64, content, repliedURL string) error

	// WithTx returns a new CommentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CommentStore
}
