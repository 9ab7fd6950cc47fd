package filesink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/user/registry-crawler/internal/entity"
)

// CSVColumns is the header of the CSV export. Nested lists are reduced to
// their counts; permits and licenses to their flags.
var CSVColumns = []string{
	"page_type",
	"business_id",
	"business_name",
	"business_type",
	"business_category",
	"status",
	"registration_number",
	"upn",
	"sme_classification",
	"address",
	"owner",
	"managing_director",
	"detail_url",
	"search_query",
	"board_of_directors_count",
	"shareholders_count",
	"business_names_count",
	"business_activities_count",
	"has_permits",
	"has_licenses",
	"error",
	"html_length",
	"extracted_at",
}

// CSVSink writes a tabular projection of the scalar fields of every record.
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// OpenCSV opens path for appending and writes the header when the file is
// new or empty.
func OpenCSV(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv sink %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv sink %s: %w", path, err)
	}
	s, err := NewCSV(f, info.Size() == 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewCSV writes to w, starting with the header when writeHeader is set.
func NewCSV(w io.Writer, writeHeader bool) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if writeHeader {
		if err := s.write(CSVColumns); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	return s, nil
}

func (s *CSVSink) Append(_ context.Context, record entity.Record) error {
	row := CSVRow(record)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(row); err != nil {
		return fmt.Errorf("write %s record %s: %w", record.RecordType(), record.Key(), err)
	}
	return nil
}

func (s *CSVSink) write(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// CSVRow projects a record onto CSVColumns.
func CSVRow(record entity.Record) []string {
	row := make(map[string]string, len(CSVColumns))
	row["page_type"] = record.RecordType()

	switch r := record.(type) {
	case *entity.BusinessDetail:
		row["business_id"] = str(r.BusinessID)
		row["business_name"] = str(r.BusinessName)
		row["business_type"] = str(r.BusinessType)
		row["status"] = str(r.Status)
		row["registration_number"] = str(r.RegistrationNumber)
		row["upn"] = str(r.UPN)
		row["sme_classification"] = str(r.SMEClassification)
		row["address"] = str(r.Address)
		row["owner"] = str(r.Owner)
		row["managing_director"] = str(r.ManagingDirector)
		row["detail_url"] = r.DetailURL
		row["board_of_directors_count"] = strconv.Itoa(r.BoardOfDirectorsCount)
		row["shareholders_count"] = strconv.Itoa(r.ShareholdersCount)
		row["business_names_count"] = strconv.Itoa(r.BusinessNamesCount)
		row["business_activities_count"] = strconv.Itoa(r.BusinessActivityCount)
		row["has_permits"] = strconv.FormatBool(r.Permits.HasPermits)
		row["has_licenses"] = strconv.FormatBool(r.Licenses.HasLicenses)
		row["extracted_at"] = timestamp(r.ExtractedAt)
	case *entity.ErrorRecord:
		row["business_id"] = str(r.BusinessID)
		row["detail_url"] = r.DetailURL
		row["error"] = r.Error
		row["html_length"] = strconv.Itoa(r.HTMLLength)
		row["extracted_at"] = timestamp(r.ExtractedAt)
	case *entity.ListingSummary:
		row["business_id"] = str(r.BusinessID)
		row["business_name"] = r.BusinessName
		row["business_type"] = str(r.BusinessType)
		row["business_category"] = r.BusinessCategory
		row["status"] = str(r.Status)
		row["detail_url"] = str(r.DetailURL)
		row["search_query"] = str(r.SearchQuery)
		row["extracted_at"] = timestamp(r.ExtractedAt)
	}

	out := make([]string, len(CSVColumns))
	for i, col := range CSVColumns {
		out[i] = row[col]
	}
	return out
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
