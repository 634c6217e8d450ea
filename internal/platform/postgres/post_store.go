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

const postColumns = `id, lead_id, title, content, author, url, subreddit, score, num_comments,
	generated_title, generated_content, ai_generated, is_posted, posted_url, created_at, updated_at`

// PostgresPostStore implements store.PostStore using PostgreSQL.
type PostgresPostStore struct {
	db     store.DBTX
	logger *slog.Logger
	posts  recordQuery[domain.Post]
}

// NewPostgresPostStore creates a new PostgresPostStore.
func NewPostgresPostStore(db store.DBTX, logger *slog.Logger) *PostgresPostStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPostStore{
		db:     db,
		logger: logger.With(slog.String("component", "post_store")),
		posts: recordQuery[domain.Post]{
			db:       db,
			scan:     scanPost,
			notFound: store.ErrPostNotFound,
		},
	}
}

var _ store.PostStore = (*PostgresPostStore)(nil)

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID,
		&p.LeadID,
		&p.Title,
		&p.Content,
		&p.Author,
		&p.URL,
		&p.Subreddit,
		&p.Score,
		&p.NumComments,
		&p.GeneratedTitle,
		&p.GeneratedContent,
		&p.AIGenerated,
		&p.IsPosted,
		&p.PostedURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create implements store.PostStore.Create.
// Returns store.ErrDuplicate when (lead_id, url) already exists. The insert
// skips conflicting rows instead of raising, so a duplicate does not abort an
// enclosing transaction.
func (s *PostgresPostStore) Create(ctx context.Context, post *domain.Post) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := post.Validate(); err != nil {
		log.Warn("post validation failed during create", slog.String("error", err.Error()))
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO posts (lead_id, title, content, author, url, subreddit, score, num_comments,
			generated_title, generated_content, ai_generated, is_posted, posted_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (lead_id, url) DO NOTHING
		RETURNING ` + postColumns

	created, err := s.posts.one(ctx, query,
		post.LeadID,
		post.Title,
		post.Content,
		post.Author,
		post.URL,
		post.Subreddit,
		post.Score,
		post.NumComments,
		post.GeneratedTitle,
		post.GeneratedContent,
		post.AIGenerated,
		post.IsPosted,
		post.PostedURL,
		now,
	)
	if errors.Is(err, store.ErrPostNotFound) {
		err = fmt.Errorf("%w: post %s for lead %d", store.ErrDuplicate, post.URL, post.LeadID)
	}
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("post already stored for lead",
				slog.Int64("lead_id", post.LeadID),
				slog.String("url", post.URL))
		} else {
			log.Error("failed to create post",
				slog.String("error", err.Error()),
				slog.Int64("lead_id", post.LeadID))
		}
		return err
	}

	*post = *created
	return nil
}

// GetByID implements store.PostStore.GetByID.
func (s *PostgresPostStore) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.one(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
}

// ListByLead implements store.PostStore.ListByLead.
func (s *PostgresPostStore) ListByLead(
	ctx context.Context,
	leadID int64,
	offset, limit int,
) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE lead_id = $1 ORDER BY id ASC OFFSET $2 LIMIT $3`
	return s.posts.many(ctx, query, leadID, offset, limit)
}

// SaveGenerated implements store.PostStore.SaveGenerated.
func (s *PostgresPostStore) SaveGenerated(ctx context.Context, id int64, title, content string) error {
	query := `
		UPDATE posts
		SET generated_title = $2, generated_content = $3, ai_generated = TRUE, updated_at = $4
		WHERE id = $1`
	return s.exec(ctx, "save generated content", id, query, id, title, content, time.Now().UTC())
}

// MarkPosted implements store.PostStore.MarkPosted.
func (s *PostgresPostStore) MarkPosted(ctx context.Context, id int64, postedURL string) error {
	query := `
		UPDATE posts
		SET is_posted = TRUE, posted_url = $2, updated_at = $3
		WHERE id = $1`
	return s.exec(ctx, "mark posted", id, query, id, postedURL, time.Now().UTC())
}

func (s *PostgresPostStore) exec(ctx context.Context, op string, id int64, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op,
			slog.String("error", err.Error()),
			slog.Int64("post_id", id))
		return MapError(err, store.ErrPostNotFound)
	}
	return CheckRowsAffected(result, store.ErrPostNotFound)
}

// WithTx implements store.PostStore.WithTx.
func (s *PostgresPostStore) WithTx(tx *sql.Tx) store.PostStore {
	return &PostgresPostStore{
		db:     tx,
		logger: s.logger,
		posts:  s.posts.withDB(tx),
	}
}
