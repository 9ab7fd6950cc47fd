// Package multisink fans records out to several sinks.
package multisink

import (
	"context"
	"errors"

	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/repository"
)

// Sink appends every record to each of its sinks in order. A failing sink
// does not stop the others; their errors are joined.
type Sink struct {
	sinks []repository.RecordSink
}

func New(sinks ...repository.RecordSink) *Sink {
	return &Sink{sinks: sinks}
}

func (m *Sink) Append(ctx context.Context, record entity.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AppendAll hands the records to each sink, in one call for sinks that
// support batches.
func (m *Sink) AppendAll(ctx context.Context, records []entity.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if batch, ok := s.(repository.BatchRecordSink); ok {
			if err := batch.AppendAll(ctx, records); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range records {
			if err := s.Append(ctx, r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
