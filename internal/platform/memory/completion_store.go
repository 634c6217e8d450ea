package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/store"
)

type completionKey struct {
	owner   int64
	content string
	target  string
}

// CompletionStore keeps target-completion records in a set keyed by
// (owner, content, target).
type CompletionStore struct {
	mu      sync.RWMutex
	records map[completionKey]domain.TargetCompletion
}

// NewCompletionStore creates an empty CompletionStore.
func NewCompletionStore() *CompletionStore {
	return &CompletionStore{records: make(map[completionKey]domain.TargetCompletion)}
}

var _ store.CompletionStore = (*CompletionStore)(nil)

// IsCompleted implements store.CompletionStore.IsCompleted.
func (s *CompletionStore) IsCompleted(_ context.Context, ownerID int64, contentIdentity, target string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[completionKey{ownerID, contentIdentity, target}]
	return ok, nil
}

// MarkCompleted implements store.CompletionStore.MarkCompleted.
func (s *CompletionStore) MarkCompleted(
	_ context.Context,
	ownerID int64,
	contentIdentity, target, externalRef string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := completionKey{ownerID, contentIdentity, target}
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = domain.TargetCompletion{
		OwnerID:         ownerID,
		ContentIdentity: contentIdentity,
		Target:          target,
		ExternalRef:     externalRef,
		CompletedAt:     time.Now().UTC(),
	}
	return true, nil
}

// CompletedTargets implements store.CompletionStore.CompletedTargets.
func (s *CompletionStore) CompletedTargets(_ context.Context, ownerID int64, contentIdentity string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0)
	for k := range s.records {
		if k.owner == ownerID && k.content == contentIdentity {
			out = append(out, k.target)
		}
	}
	sort.Strings(out)
	return out, nil
}
