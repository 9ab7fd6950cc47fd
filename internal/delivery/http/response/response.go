package response

import (
	"time"

	"github.com/user/registry-crawler/internal/entity"
)

type SubmitCrawlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// RunStatusResponse is a DTO for a crawl run, mirroring entity.RunStatus.
type RunStatusResponse struct {
	ID            string          `json:"id"`
	Queries       []string        `json:"queries"`
	ExactMatch    bool            `json:"exact_match"`
	State         string          `json:"state"` // "pending", "running", "completed", "failed"
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Stats         entity.RunStats `json:"stats"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

func NewRunStatusResponse(s *entity.RunStatus) RunStatusResponse {
	return RunStatusResponse{
		ID:            s.ID,
		Queries:       s.Queries,
		ExactMatch:    s.ExactMatch,
		State:         string(s.State),
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		Stats:         s.Stats,
		FailureReason: s.FailureReason,
	}
}

type FailedTaskResponse struct {
	URL            string    `json:"url"`
	Method         string    `json:"method"`
	Purpose        string    `json:"purpose"`
	FailureReason  string    `json:"failure_reason"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	Attempts       int       `json:"attempts"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
}

func NewFailedTaskResponse(t *entity.FailedTask) FailedTaskResponse {
	return FailedTaskResponse{
		URL:            t.URL,
		Method:         t.Method,
		Purpose:        string(t.Purpose),
		FailureReason:  t.FailureReason,
		HTTPStatusCode: t.HTTPStatusCode,
		Attempts:       t.Attempts,
		LastAttemptAt:  t.LastAttemptTimestamp,
	}
}
