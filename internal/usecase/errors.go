package usecase

import "errors"

var (
	// ErrNoQueries aborts a run before any task is issued.
	ErrNoQueries   = errors.New("no search queries supplied")
	ErrRunNotFound = errors.New("crawl run not found")
)
