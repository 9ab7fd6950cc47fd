package repository

import "context"

// TaskDeduper defines the interface for the set of task identities that
// were already issued.
type TaskDeduper interface {
	// MarkIfAbsent records identity and reports whether it was new. The
	// check and the insert are a single atomic step.
	MarkIfAbsent(ctx context.Context, identity string) (bool, error)
}
