package repository

import (
	"context"

	"github.com/user/registry-crawler/internal/entity"
)

// TaskQueue defines the interface for the FIFO frontier of pending tasks.
type TaskQueue interface {
	// Push adds a task to the end of the queue.
	Push(ctx context.Context, task entity.FetchTask) error
	// Pop removes and returns the task at the front of the queue. ok is
	// false when the queue is empty.
	Pop(ctx context.Context) (task entity.FetchTask, ok bool, err error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
