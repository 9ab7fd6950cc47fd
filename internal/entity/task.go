package entity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Purpose records why a task was issued; it selects the handler for the
// fetched page.
type Purpose string

const (
	PurposeSearch Purpose = "search"
	PurposeDetail Purpose = "detail"
)

// FetchTask is a single outbound request produced by the orchestrator.
type FetchTask struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	Payload     []byte      `json:"payload,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Purpose     Purpose     `json:"purpose"`
	Query       SearchQuery `json:"query"`
}

// Identity is the extended identity of the task: method, url and payload.
// Two tasks with the same URL but different payloads are distinct.
func (t FetchTask) Identity() string {
	h := sha256.New()
	h.Write([]byte(t.Method))
	h.Write([]byte{'\n'})
	h.Write([]byte(t.URL))
	h.Write([]byte{'\n'})
	h.Write(t.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Page is a fetched response handed to the extractors.
type Page struct {
	Task       FetchTask
	URL        string
	StatusCode int
	HTML       string
}
