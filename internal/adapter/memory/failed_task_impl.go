package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/user/registry-crawler/internal/entity"
)

// FailedTaskRepo keeps failed tasks keyed by identity.
type FailedTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[string]*entity.FailedTask
}

func NewFailedTaskRepo() *FailedTaskRepo {
	return &FailedTaskRepo{byID: make(map[string]*entity.FailedTask)}
}

// SaveOrUpdate inserts the task or, when its identity is known, updates the
// failure details and adds its attempts to the running total.
func (r *FailedTaskRepo) SaveOrUpdate(_ context.Context, task *entity.FailedTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[task.Identity]; ok {
		existing.FailureReason = task.FailureReason
		existing.HTTPStatusCode = task.HTTPStatusCode
		existing.LastAttemptTimestamp = task.LastAttemptTimestamp
		existing.Attempts += task.Attempts
		return nil
	}
	r.nextID++
	stored := *task
	stored.ID = r.nextID
	r.byID[task.Identity] = &stored
	return nil
}

func (r *FailedTaskRepo) List(_ context.Context, limit int) ([]*entity.FailedTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.FailedTask, 0, len(r.byID))
	for _, t := range r.byID {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAttemptTimestamp.After(out[j].LastAttemptTimestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
