package memory

import (
	"context"
	"sync"

	"github.com/user/registry-crawler/internal/entity"
)

// TaskQueue is an unbounded FIFO of fetch tasks.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []entity.FetchTask
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

func (q *TaskQueue) Push(_ context.Context, task entity.FetchTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *TaskQueue) Pop(_ context.Context) (entity.FetchTask, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return entity.FetchTask{}, false, nil
	}
	task := q.tasks[0]
	q.tasks[0] = entity.FetchTask{}
	q.tasks = q.tasks[1:]
	return task, true, nil
}

func (q *TaskQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}
