package memory

import (
	"context"
	"testing"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentStore_Lifecycle(t *testing.T) {
	s := NewCommentStore()
	ctx := context.Background()

	c := &domain.Comment{PostID: 1, CommentID: "k1", Author: "sam", Content: "same problem here"}
	require.NoError(t, s.Create(ctx, c))
	assert.Equal(t, int64(1), c.ID)

	err := s.Create(ctx, &domain.Comment{PostID: 1, CommentID: "k1"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, s.Create(ctx, &domain.Comment{PostID: 2, CommentID: "k1"}), "same id under another post is fine")
	require.NoError(t, s.Create(ctx, &domain.Comment{PostID: 1, CommentID: "k2"}))

	assert.ErrorIs(t, s.Create(ctx, &domain.Comment{CommentID: "k3"}), domain.ErrEmptyCommentPostID)

	require.NoError(t, s.MarkReplied(ctx, c.ID, "try this", "https://www.reddit.com/r/x/comments/a/t/r1/"))
	got, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReplied)
	assert.Equal(t, "try this", got.ReplyContent)

	comments, err := s.ListByPost(ctx, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "k1", comments[0].CommentID)
	assert.Equal(t, "k2", comments[1].CommentID)

	page, err := s.ListByPost(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "k2", page[0].CommentID)

	_, err = s.GetByID(ctx, 99)
	assert.ErrorIs(t, err, store.ErrCommentNotFound)
	assert.ErrorIs(t, s.MarkReplied(ctx, 99, "x", "u"), store.ErrCommentNotFound)
}
