// Package memory holds in-process implementations of the repository
// interfaces, used by the CLI when no Redis is configured and by tests.
package memory

import (
	"context"
	"sync"
)

// TaskDeduper is a mutex-protected set of task identities.
type TaskDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewTaskDeduper() *TaskDeduper {
	return &TaskDeduper{seen: make(map[string]struct{})}
}

// MarkIfAbsent records identity and reports whether it was new.
func (d *TaskDeduper) MarkIfAbsent(_ context.Context, identity string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[identity]; ok {
		return false, nil
	}
	d.seen[identity] = struct{}{}
	return true, nil
}

// Len returns the number of identities recorded.
func (d *TaskDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
