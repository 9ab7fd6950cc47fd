package repository

import (
	"context"

	"github.com/user/registry-crawler/internal/entity"
)

// FailedTaskRepository defines the interface for tasks that could not be
// fetched after every retry.
type FailedTaskRepository interface {
	// SaveOrUpdate creates or updates the record for a failed task, keyed by
	// its identity.
	SaveOrUpdate(ctx context.Context, task *entity.FailedTask) error
	// List returns the most recent failures, newest first.
	List(ctx context.Context, limit int) ([]*entity.FailedTask, error)
}
