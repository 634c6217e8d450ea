package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/store"
)

const commentColumns = `id, post_id, comment_id, author, content, score, permalink,
	reply_content, is_replied, replied_url, created_at, updated_at`

// PostgresCommentStore implements store.CommentStore using PostgreSQL.
type PostgresCommentStore struct {
	db       store.DBTX
	logger   *slog.Logger
	comments recordQuery[domain.Comment]
}

// NewPostgresCommentStore creates a new PostgresCommentStore.
func NewPostgresCommentStore(db store.DBTX, logger *slog.Logger) *PostgresCommentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCommentStore{
		db:     db,
		logger: logger.With(slog.String("component", "comment_store")),
		comments: recordQuery[domain.Comment]{
			db:       db,
			scan:     scanComment,
			notFound: store.ErrCommentNotFound,
		},
	}
}

var _ store.CommentStore = (*PostgresCommentStore)(nil)

func scanComment(row rowScanner) (*domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.CommentID,
		&c.Author,
		&c.Content,
		&c.Score,
		&c.Permalink,
		&c.ReplyContent,
		&c.IsReplied,
		&c.RepliedURL,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create implements store.CommentStore.Create.
// Conflicting rows are skipped and reported as store.ErrDuplicate.
func (s *PostgresCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := comment.Validate(); err != nil {
		log.Warn("comment validation failed during create", slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO comments (post_id, comment_id, author, content, score, permalink, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (post_id, comment_id) DO NOTHING
		RETURNING ` + commentColumns

	created, err := s.comments.one(ctx, query,
		comment.PostID,
		comment.CommentID,
		comment.Author,
		comment.Content,
		comment.Score,
		comment.Permalink,
		time.Now().UTC(),
	)
	if errors.Is(err, store.ErrCommentNotFound) {
		return fmt.Errorf("%w: comment %s of post %d", store.ErrDuplicate, comment.CommentID, comment.PostID)
	}
	if err != nil {
		log.Error("failed to create comment",
			slog.String("error", err.Error()),
			slog.Int64("post_id", comment.PostID))
		return err
	}

	*comment = *created
	return nil
}

// GetByID implements store.CommentStore.GetByID.
func (s *PostgresCommentStore) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	return s.comments.one(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
}

// ListByPost implements store.CommentStore.ListByPost.
func (s *PostgresCommentStore) ListByPost(
	ctx context.Context,
	postID int64,
	offset, limit int,
) ([]*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY id ASC OFFSET $2 LIMIT $3`
	return s.comments.many(ctx, query, postID, offset, limit)
}

// MarkReplied implements store.CommentStore.MarkReplied.
func (s *PostgresCommentStore) MarkReplied(ctx context.Context, id int64, content, repliedURL string) error {
	query := `
		UPDATE comments
		SET reply_content = $2, replied_url = $3, is_replied = TRUE, updated_at = $4
		WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, content, repliedURL, time.Now().UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark comment replied",
			slog.String("error", err.Error()),
			slog.Int64("comment_id", id))
		return MapError(err, store.ErrCommentNotFound)
	}
	return CheckRowsAffected(result, store.ErrCommentNotFound)
}

// WithTx implements store.CommentStore.WithTx.
func (s *PostgresCommentStore) WithTx(tx *sql.Tx) store.CommentStore {
	return &PostgresCommentStore{
		db:       tx,
		logger:   s.logger,
		comments: s.comments.withDB(tx),
	}
}
