package memory

import (
	"context"
	"sync"

	"github.com/user/registry-crawler/internal/entity"
)

// RecordSink keeps appended records in memory, in arrival order.
type RecordSink struct {
	mu      sync.Mutex
	records []entity.Record
}

func NewRecordSink() *RecordSink {
	return &RecordSink{}
}

func (s *RecordSink) Append(_ context.Context, record entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *RecordSink) Records() []entity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Record, len(s.records))
	copy(out, s.records)
	return out
}
