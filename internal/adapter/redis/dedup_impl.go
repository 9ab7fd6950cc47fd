package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenTaskPrefix = "crawler:seen:"

// TaskDeduperImpl implements repository.TaskDeduper with one Redis key per
// task identity. Keys are scoped to a run and expire after ttl.
type TaskDeduperImpl struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

// NewTaskDeduper creates a dedup set for the given run.
func NewTaskDeduper(client *redis.Client, runID string, ttl time.Duration) *TaskDeduperImpl {
	return &TaskDeduperImpl{client: client, runID: runID, ttl: ttl}
}

func (r *TaskDeduperImpl) key(identity string) string {
	return fmt.Sprintf("%s%s:%s", seenTaskPrefix, r.runID, identity)
}

// MarkIfAbsent uses SET NX so the check and the insert are atomic across
// every process sharing the Redis instance.
func (r *TaskDeduperImpl) MarkIfAbsent(ctx context.Context, identity string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(identity), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", identity, err)
	}
	return ok, nil
}
