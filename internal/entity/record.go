package entity

// Record is anything the pipeline appends to a record sink.
type Record interface {
	// RecordType is the page_type tag of the record.
	RecordType() string
	// Key is a best-effort identifier used for logging and storage keys.
	Key() string
}
