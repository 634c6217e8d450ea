package engage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/memory"
	"github.com/phrazzld/engage-api/internal/platform/postgres"
	"github.com/phrazzld/engage-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStores() Stores {
	return Stores{Posts: memory.NewPostStore(), Comments: memory.NewCommentStore()}
}

func threads(posts ...*domain.Post) []ScrapedThread {
	out := make([]ScrapedThread, 0, len(posts))
	for _, p := range posts {
		out = append(out, ScrapedThread{Post: p})
	}
	return out
}

func TestPostMessages(t *testing.T) {
	bus := dispatch.NewBus()
	require.NoError(t, RegisterPosts(bus, memoryStores(), discardLogger()))
	ctx := context.Background()

	saved, err := dispatch.Send[SavePostsResult](ctx, bus, SavePosts{Threads: threads(
		&domain.Post{LeadID: 1, URL: "a"},
		&domain.Post{LeadID: 1, URL: "b"},
		&domain.Post{LeadID: 1, URL: "a"},
	)})
	require.NoError(t, err)
	assert.Len(t, saved.Saved, 2)
	assert.Equal(t, 1, saved.Duplicates)

	id := saved.Saved[0].ID
	_, err = dispatch.Send[dispatch.NoResult](ctx, bus, SaveGeneratedContent{PostID: id, Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = dispatch.Send[dispatch.NoResult](ctx, bus, MarkPostPublished{PostID: id, PostedURL: "https://x"})
	require.NoError(t, err)

	post, err := dispatch.Ask[*domain.Post](ctx, bus, GetPost{PostID: id})
	require.NoError(t, err)
	assert.True(t, post.AIGenerated)
	assert.True(t, post.IsPosted)
	assert.Equal(t, "https://x", post.PostedURL)

	list, err := dispatch.Ask[[]*domain.Post](ctx, bus, ListPostsByLead{LeadID: 1, Limit: 1, Skip: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].URL)

	_, err = dispatch.Send[dispatch.NoResult](ctx, bus, MarkPostPublished{PostID: 404})
	assert.ErrorIs(t, err, store.ErrPostNotFound)
}

func TestCommentMessages(t *testing.T) {
	bus := dispatch.NewBus()
	require.NoError(t, RegisterPosts(bus, memoryStores(), discardLogger()))
	ctx := context.Background()

	saved, err := dispatch.Send[SavePostsResult](ctx, bus, SavePosts{Threads: []ScrapedThread{{
		Post: &domain.Post{LeadID: 1, URL: "a"},
		Comments: []*domain.Comment{
			{CommentID: "k1", Content: "same here"},
			{CommentID: "k2", Content: "me too"},
			{CommentID: "k1", Content: "listed twice"},
		},
	}}})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.CommentsSaved)
	postID := saved.Saved[0].ID

	comments, err := dispatch.Ask[[]*domain.Comment](ctx, bus, ListPostComments{PostID: postID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, postID, comments[0].PostID)

	_, err = dispatch.Send[dispatch.NoResult](ctx, bus, MarkCommentReplied{
		CommentID: comments[0].ID, Content: "try this", RepliedURL: "https://r",
	})
	require.NoError(t, err)

	got, err := dispatch.Ask[*domain.Comment](ctx, bus, GetComment{CommentID: comments[0].ID})
	require.NoError(t, err)
	assert.True(t, got.IsReplied)

	_, err = dispatch.Ask[*domain.Comment](ctx, bus, GetComment{CommentID: 404})
	assert.ErrorIs(t, err, store.ErrCommentNotFound)
}

func TestSavePosts_InvalidPostStops(t *testing.T) {
	bus := dispatch.NewBus()
	require.NoError(t, RegisterPosts(bus, memoryStores(), nil))

	result, err := dispatch.Send[SavePostsResult](context.Background(), bus, SavePosts{Threads: threads(
		&domain.Post{LeadID: 1, URL: "a"},
		&domain.Post{LeadID: 1},
	)})
	assert.ErrorIs(t, err, domain.ErrEmptyPostURL)
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "post", storeErr.Entity)
	assert.Len(t, result.Saved, 0, "the bus returns the zero result on error")
}

func TestRegisterPosts_RequiresStores(t *testing.T) {
	err := RegisterPosts(dispatch.NewBus(), Stores{Posts: memory.NewPostStore()}, nil)
	assert.Error(t, err)
}

var (
	postRowCols = []string{
		"id", "lead_id", "title", "content", "author", "url", "subreddit", "score", "num_comments",
		"generated_title", "generated_content", "ai_generated", "is_posted", "posted_url", "created_at", "updated_at",
	}
	commentRowCols = []string{
		"id", "post_id", "comment_id", "author", "content", "score", "permalink",
		"reply_content", "is_replied", "replied_url", "created_at", "updated_at",
	}
)

func newSQLStores(t *testing.T) (Stores, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return Stores{
		Posts:    postgres.NewPostgresPostStore(db, discardLogger()),
		Comments: postgres.NewPostgresCommentStore(db, discardLogger()),
		DB:       db,
	}, mock
}

func TestSavePosts_BatchIsOneTransaction(t *testing.T) {
	now := time.Now().UTC()
	batch := func() SavePosts {
		return SavePosts{Threads: []ScrapedThread{
			{Post: &domain.Post{LeadID: 1, URL: "a"}, Comments: []*domain.Comment{{CommentID: "k1"}}},
			{Post: &domain.Post{LeadID: 1, URL: "dup"}},
			{Post: &domain.Post{LeadID: 1, URL: "c"}},
		}}
	}
	expectFirstTwo := func(mock sqlmock.Sqlmock) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
			WillReturnRows(sqlmock.NewRows(postRowCols).AddRow(
				int64(1), int64(1), "", "", "", "a", "", 0, 0, "", "", false, false, "", now, now))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO comments")).
			WillReturnRows(sqlmock.NewRows(commentRowCols).AddRow(
				int64(7), int64(1), "k1", "", "", 0, "", "", false, "", now, now))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
			WillReturnRows(sqlmock.NewRows(postRowCols))
	}

	t.Run("duplicates are skipped and the batch commits", func(t *testing.T) {
		stores, mock := newSQLStores(t)
		bus := dispatch.NewBus()
		require.NoError(t, RegisterPosts(bus, stores, discardLogger()))

		expectFirstTwo(mock)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
			WillReturnRows(sqlmock.NewRows(postRowCols).AddRow(
				int64(2), int64(1), "", "", "", "c", "", 0, 0, "", "", false, false, "", now, now))
		mock.ExpectCommit()

		result, err := dispatch.Send[SavePostsResult](context.Background(), bus, batch())

		require.NoError(t, err)
		assert.Len(t, result.Saved, 2)
		assert.Equal(t, 1, result.Duplicates)
		assert.Equal(t, 1, result.CommentsSaved)
	})

	t.Run("a failing insert rolls back the whole batch", func(t *testing.T) {
		stores, mock := newSQLStores(t)
		bus := dispatch.NewBus()
		require.NoError(t, RegisterPosts(bus, stores, discardLogger()))
		dbErr := errors.New("connection reset")

		expectFirstTwo(mock)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).WillReturnError(dbErr)
		mock.ExpectRollback()

		result, err := dispatch.Send[SavePostsResult](context.Background(), bus, batch())

		assert.ErrorIs(t, err, dbErr)
		assert.Empty(t, result.Saved)
	})
}
