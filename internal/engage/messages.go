package engage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/store"
)

// GetPost fetches one post.
type GetPost struct {
	PostID int64
}

// ListPostsByLead lists a lead's posts ordered by id.
type ListPostsByLead struct {
	LeadID int64
	Skip   int
	Limit  int
}

// ScrapedThread is a fetched post with the comments fetched from its thread.
type ScrapedThread struct {
	Post     *domain.Post
	Comments []*domain.Comment
}

// SavePosts stores scraped posts with their comments, skipping posts the lead
// already has. The batch is all-or-nothing when the stores share a database.
type SavePosts struct {
	Threads []ScrapedThread
}

// SavePostsResult reports what SavePosts stored.
type SavePostsResult struct {
	Saved         []*domain.Post
	Duplicates    int
	CommentsSaved int
}

// SaveGeneratedContent stores generated content on a post and marks it AI-generated.
type SaveGeneratedContent struct {
	PostID  int64
	Title   string
	Content string
}

// MarkPostPublished records that a post's generated content was published.
type MarkPostPublished struct {
	PostID    int64
	PostedURL string
}

// GetComment fetches one comment.
type GetComment struct {
	CommentID int64
}

// ListPostComments lists the stored comments of a post ordered by id.
type ListPostComments struct {
	PostID int64
	Skip   int
	Limit  int
}

// MarkCommentReplied records the reply published to a comment.
type MarkCommentReplied struct {
	CommentID  int64
	Content    string
	RepliedURL string
}

// Stores are the stores behind the post and comment messages. DB, when set,
// is the database both stores run on and is used to save scrape batches in
// one transaction.
type Stores struct {
	Posts    store.PostStore
	Comments store.CommentStore
	DB       *sql.DB
}

func (s Stores) inTx(
	ctx context.Context,
	fn func(ctx context.Context, posts store.PostStore, comments store.CommentStore) error,
) error {
	if s.DB == nil {
		return fn(ctx, s.Posts, s.Comments)
	}
	return store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.Posts.WithTx(tx), s.Comments.WithTx(tx))
	})
}

// RegisterPosts binds the post and comment commands and queries to stores on bus.
func RegisterPosts(bus *dispatch.Bus, stores Stores, logger *slog.Logger) error {
	if stores.Posts == nil || stores.Comments == nil {
		return errors.New("post and comment stores are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	posts, comments := stores.Posts, stores.Comments

	if err := dispatch.RegisterQuery(bus, func(ctx context.Context, q GetPost) (*domain.Post, error) {
		return posts.GetByID(ctx, q.PostID)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterQuery(bus, func(ctx context.Context, q ListPostsByLead) ([]*domain.Post, error) {
		return posts.ListByLead(ctx, q.LeadID, q.Skip, q.Limit)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterCommand(bus, func(ctx context.Context, c SavePosts) (SavePostsResult, error) {
		result, err := saveThreads(ctx, stores, c.Threads)
		if err != nil {
			return SavePostsResult{}, err
		}
		logger.DebugContext(ctx, "saved scraped posts",
			slog.Int("saved", len(result.Saved)),
			slog.Int("duplicates", result.Duplicates),
			slog.Int("comments_saved", result.CommentsSaved))
		return result, nil
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterCommand(bus, func(ctx context.Context, c SaveGeneratedContent) (dispatch.NoResult, error) {
		return dispatch.NoResult{}, posts.SaveGenerated(ctx, c.PostID, c.Title, c.Content)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterCommand(bus, func(ctx context.Context, c MarkPostPublished) (dispatch.NoResult, error) {
		return dispatch.NoResult{}, posts.MarkPosted(ctx, c.PostID, c.PostedURL)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterQuery(bus, func(ctx context.Context, q GetComment) (*domain.Comment, error) {
		return comments.GetByID(ctx, q.CommentID)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterQuery(bus, func(ctx context.Context, q ListPostComments) ([]*domain.Comment, error) {
		return comments.ListByPost(ctx, q.PostID, q.Skip, q.Limit)
	}); err != nil {
		return err
	}
	return dispatch.RegisterCommand(bus, func(ctx context.Context, c MarkCommentReplied) (dispatch.NoResult, error) {
		return dispatch.NoResult{}, comments.MarkReplied(ctx, c.CommentID, c.Content, c.RepliedURL)
	})
}

// saveThreads stores each new post followed by its comments. Comments of a
// post the lead already has are not stored again.
func saveThreads(ctx context.Context, stores Stores, threads []ScrapedThread) (SavePostsResult, error) {
	var result SavePostsResult
	err := stores.inTx(ctx, func(ctx context.Context, posts store.PostStore, comments store.CommentStore) error {
		result = SavePostsResult{Saved: make([]*domain.Post, 0, len(threads))}
		for i, th := range threads {
			if err := posts.Create(ctx, th.Post); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					result.Duplicates++
					continue
				}
				return store.NewStoreError("post", "create", fmt.Sprintf("batch item %d", i), err)
			}
			result.Saved = append(result.Saved, th.Post)

			for _, c := range th.Comments {
				c.PostID = th.Post.ID
				if err := comments.Create(ctx, c); err != nil {
					if errors.Is(err, store.ErrDuplicate) {
						continue
					}
					return store.NewStoreError("comment", "create", fmt.Sprintf("batch item %d", i), err)
				}
				result.CommentsSaved++
			}
		}
		return nil
	})
	return result, err
}
