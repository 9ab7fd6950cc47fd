package repository

import (
	"context"

	"github.com/user/registry-crawler/internal/entity"
)

// Fetcher defines the contract for the transport that executes fetch tasks.
type Fetcher interface {
	// Fetch performs the task's request and returns the page. Non-2xx
	// responses are returned as errors wrapping ErrUnexpectedStatus.
	Fetch(ctx context.Context, task entity.FetchTask) (*entity.Page, error)
}
