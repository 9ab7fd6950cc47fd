package repository

import (
	"context"

	"github.com/user/registry-crawler/internal/entity"
)

// RecordSink defines the interface for the append-only output dataset.
// Implementations must be safe for concurrent use.
type RecordSink interface {
	// Append stores one record. Records are never updated in place by the
	// pipeline; storage-level upserts are an implementation detail.
	Append(ctx context.Context, record entity.Record) error
}

// BatchRecordSink is a RecordSink that can store several records in one
// call.
type BatchRecordSink interface {
	RecordSink
	AppendAll(ctx context.Context, records []entity.Record) error
}
