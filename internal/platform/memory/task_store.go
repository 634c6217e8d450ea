package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/store"
)

// TaskStore is a mutex-guarded map of tasks with sequential IDs.
type TaskStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]*domain.Task
}

// NewTaskStore creates an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[int64]*domain.Task)}
}

var _ store.TaskStore = (*TaskStore)(nil)

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	c.ResultData = maps.Clone(t.ResultData)
	return &c
}

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	task.ID = s.nextID
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// List implements store.TaskStore.List.
func (s *TaskStore) List(_ context.Context, offset, limit int) ([]*domain.Task, error) {
	return s.filter(func(*domain.Task) bool { return true }, offset, limit), nil
}

// ListByAgent implements store.TaskStore.ListByAgent.
func (s *TaskStore) ListByAgent(_ context.Context, agentID string, offset, limit int) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool { return t.AgentID == agentID }, offset, limit), nil
}

// UpdateStatus implements store.TaskStore.UpdateStatus.
func (s *TaskStore) UpdateStatus(
	_ context.Context,
	id int64,
	status domain.TaskStatus,
	resultData domain.ResultData,
) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if err := t.ApplyStatus(status, maps.Clone(resultData)); err != nil {
		return nil, err
	}
	return cloneTask(t), nil
}

// ListStale implements store.TaskStore.ListStale.
func (s *TaskStore) ListStale(
	_ context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.filter(func(t *domain.Task) bool {
		return t.Status == status && t.UpdatedAt.Before(cutoff)
	}, 0, -1), nil
}

// filter returns clones of matching tasks in id order. A negative limit means no limit.
func (s *TaskStore) filter(keep func(*domain.Task) bool, offset, limit int) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := paginate(matched, offset, limit)
	out := make([]*domain.Task, 0, len(page))
	for _, t := range page {
		out = append(out, cloneTask(t))
	}
	return out
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
