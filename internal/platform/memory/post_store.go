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

// PostStore keeps posts in memory, unique per (lead, url).
type PostStore struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]*domain.Post
}

// NewPostStore creates an empty PostStore.
func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[int64]*domain.Post)}
}

var _ store.PostStore = (*PostStore)(nil)

// Create implements store.PostStore.Create.
func (s *PostStore) Create(_ context.Context, post *domain.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.LeadID == post.LeadID && p.URL == post.URL {
			return fmt.Errorf("%w: post %s for lead %d", store.ErrDuplicate, post.URL, post.LeadID)
		}
	}

	now := time.Now().UTC()
	s.nextID++
	post.ID = s.nextID
	post.CreatedAt = now
	post.UpdatedAt = now
	c := *post
	s.posts[post.ID] = &c
	return nil
}

// GetByID implements store.PostStore.GetByID.
func (s *PostStore) GetByID(_ context.Context, id int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrPostNotFound
	}
	c := *p
	return &c, nil
}

// ListByLead implements store.PostStore.ListByLead.
func (s *PostStore) ListByLead(_ context.Context, leadID int64, offset, limit int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if p.LeadID == leadID {
			c := *p
			matched = append(matched, &c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), nil
}

// SaveGenerated implements store.PostStore.SaveGenerated.
func (s *PostStore) SaveGenerated(_ context.Context, id int64, title, content string) error {
	return s.update(id, func(p *domain.Post) {
		p.GeneratedTitle = title
		p.GeneratedContent = content
		p.AIGenerated = true
	})
}

// MarkPosted implements store.PostStore.MarkPosted.
func (s *PostStore) MarkPosted(_ context.Context, id int64, postedURL string) error {
	return s.update(id, func(p *domain.Post) {
		p.IsPosted = true
		p.PostedURL = postedURL
	})
}

// WithTx implements store.PostStore.WithTx.
func (s *PostStore) WithTx(*sql.Tx) store.PostStore {
	return s
}

func (s *PostStore) update(id int64, apply func(*domain.Post)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return store.ErrPostNotFound
	}
	apply(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}
