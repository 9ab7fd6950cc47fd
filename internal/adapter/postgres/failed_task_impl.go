package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/registry-crawler/internal/entity"
)

// FailedTaskRepoImpl implements repository.FailedTaskRepository using PostgreSQL.
type FailedTaskRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedTaskRepo creates a new instance of FailedTaskRepoImpl.
func NewFailedTaskRepo(db *pgxpool.Pool) *FailedTaskRepoImpl {
	return &FailedTaskRepoImpl{db: db}
}

// SaveOrUpdate creates or updates the record for a failed task.
// Attempts accumulate on conflict.
func (r *FailedTaskRepoImpl) SaveOrUpdate(ctx context.Context, task *entity.FailedTask) error {
	query := `
		INSERT INTO failed_tasks (identity, method, url, purpose, failure_reason, http_status_code, attempts, last_attempt_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (identity) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			attempts = failed_tasks.attempts + EXCLUDED.attempts,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp;
	`
	_, err := r.db.Exec(ctx, query,
		task.Identity,
		task.Method,
		task.URL,
		string(task.Purpose),
		task.FailureReason,
		task.HTTPStatusCode,
		task.Attempts,
		task.LastAttemptTimestamp,
	)
	return err
}

// List returns the most recent failures, newest first.
func (r *FailedTaskRepoImpl) List(ctx context.Context, limit int) ([]*entity.FailedTask, error) {
	query := `
		SELECT id, identity, method, url, purpose, failure_reason, http_status_code, attempts, last_attempt_timestamp
		FROM failed_tasks
		ORDER BY last_attempt_timestamp DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*entity.FailedTask
	for rows.Next() {
		var ft entity.FailedTask
		var purpose string
		if err := rows.Scan(
			&ft.ID,
			&ft.Identity,
			&ft.Method,
			&ft.URL,
			&purpose,
			&ft.FailureReason,
			&ft.HTTPStatusCode,
			&ft.Attempts,
			&ft.LastAttemptTimestamp,
		); err != nil {
			return nil, err
		}
		ft.Purpose = entity.Purpose(purpose)
		tasks = append(tasks, &ft)
	}

	return tasks, rows.Err()
}
