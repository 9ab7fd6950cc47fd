package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/registry-crawler/internal/entity"
)

const insertRecord = `
	INSERT INTO crawl_records (page_type, record_key, business_id, payload)
	VALUES ($1, $2, $3, $4)`

// RecordSinkImpl appends records to crawl_records as JSONB documents.
// Rows are never updated; duplicates are kept.
type RecordSinkImpl struct {
	db *pgxpool.Pool
}

// NewRecordSink creates a new instance of RecordSinkImpl.
func NewRecordSink(db *pgxpool.Pool) *RecordSinkImpl {
	return &RecordSinkImpl{db: db}
}

// Append stores one record.
func (r *RecordSinkImpl) Append(ctx context.Context, record entity.Record) error {
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, insertRecord, args...)
	return err
}

// AppendAll stores records in one transaction using a batch.
func (r *RecordSinkImpl) AppendAll(ctx context.Context, records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, record := range records {
		args, err := recordArgs(record)
		if err != nil {
			return err
		}
		batch.Queue(insertRecord, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func recordArgs(record entity.Record) ([]any, error) {
	payload, err := json.Marshal(jsonbSafe(record))
	if err != nil {
		return nil, fmt.Errorf("encode %s record %s: %w", record.RecordType(), record.Key(), err)
	}
	return []any{record.RecordType(), record.Key(), businessID(record), payload}, nil
}

// jsonbSafe replaces NUL bytes in raw page HTML, which JSONB rejects even
// when escaped. Parsed text never carries NUL; the HTML parser already maps
// it to U+FFFD, and so does this.
func jsonbSafe(record entity.Record) entity.Record {
	failure, ok := record.(*entity.ErrorRecord)
	if !ok || !strings.ContainsRune(failure.RawHTML, 0) {
		return record
	}
	clean := *failure
	clean.RawHTML = strings.ReplaceAll(failure.RawHTML, "\x00", "\uFFFD")
	return &clean
}

func businessID(record entity.Record) *string {
	switch r := record.(type) {
	case *entity.BusinessDetail:
		return r.BusinessID
	case *entity.ErrorRecord:
		return r.BusinessID
	case *entity.ListingSummary:
		return r.BusinessID
	}
	return nil
}
