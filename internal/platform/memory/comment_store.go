package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/store"
)

// CommentStore keeps comments in memory, unique per (post, platform comment id).
type CommentStore struct {
	mu       sync.RWMutex
	nextID   int64
	comments map[int64]*domain.Comment
}

// NewCommentStore creates an empty CommentStore.
func NewCommentStore() *CommentStore {
	return &CommentStore{comments: make(map[int64]*domain.Comment)}
}

var _ store.CommentStore = (*CommentStore)(nil)

// Create implements store.CommentStore.Create.
func (s *CommentStore) Create(_ context.Context, comment *domain.Comment) error {
	if err := comment.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.comments {
		if c.PostID == comment.PostID && c.CommentID == comment.CommentID {
			return fmt.Errorf("%w: comment %s of post %d", store.ErrDuplicate, comment.CommentID, comment.PostID)
		}
	}

	now := time.Now().UTC()
	s.nextID++
	comment.ID = s.nextID
	comment.CreatedAt = now
	comment.UpdatedAt = now
	c := *comment
	s.comments[comment.ID] = &c
	return nil
}

// GetByID implements store.CommentStore.GetByID.
func (s *CommentStore) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, store.ErrCommentNotFound
	}
	out := *c
	return &out, nil
}

// ListByPost implements store.CommentStore.ListByPost.
func (s *CommentStore) ListByPost(_ context.Context, postID int64, offset, limit int) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			out := *c
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), nil
}

// MarkReplied implements store.CommentStore.MarkReplied.
func (s *CommentStore) MarkReplied(_ context.Context, id int64, content, repliedURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return store.ErrCommentNotFound
	}
	c.ReplyContent = content
	c.RepliedURL = repliedURL
	c.IsReplied = true
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// WithTx implements store.CommentStore.WithTx.
func (s *CommentStore) WithTx(*sql.Tx) store.CommentStore {
	return s
}
