// Package filesink writes crawl records to local files: one JSON document
// per line, or a flat CSV projection for spreadsheets.
package filesink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/user/registry-crawler/internal/entity"
)

// JSONLSink appends each record as one JSON line.
type JSONLSink struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *json.Encoder
}

// OpenJSONL opens (or creates) path for appending.
func OpenJSONL(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl sink %s: %w", path, err)
	}
	s := NewJSONL(f)
	s.closer = f
	return s, nil
}

// NewJSONL writes to w. The caller owns w.
func NewJSONL(w io.Writer) *JSONLSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLSink{enc: enc}
}

func (s *JSONLSink) Append(_ context.Context, record entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("write %s record %s: %w", record.RecordType(), record.Key(), err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
