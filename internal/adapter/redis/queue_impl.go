package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/registry-crawler/internal/entity"
)

const taskQueuePrefix = "crawler:queue:"

// TaskQueueImpl implements repository.TaskQueue on a Redis list holding
// JSON-encoded tasks. Each run gets its own list.
type TaskQueueImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewTaskQueue creates the queue for the given run. The list expires ttl
// after the last push so abandoned runs do not leak keys.
func NewTaskQueue(client *redis.Client, runID string, ttl time.Duration) *TaskQueueImpl {
	return &TaskQueueImpl{client: client, key: taskQueuePrefix + runID, ttl: ttl}
}

// Push adds a task to the left side of the list.
func (r *TaskQueueImpl) Push(ctx context.Context, task entity.FetchTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.URL, err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Pop removes a task from the right side of the list. redis.Nil means the
// queue is empty.
func (r *TaskQueueImpl) Pop(ctx context.Context) (entity.FetchTask, bool, error) {
	var task entity.FetchTask
	payload, err := r.client.RPop(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return task, false, nil
	}
	if err != nil {
		return task, false, err
	}
	if err := json.Unmarshal(payload, &task); err != nil {
		return task, false, fmt.Errorf("decode task: %w", err)
	}
	return task, true, nil
}

// Size returns the current number of items in the queue.
func (r *TaskQueueImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
