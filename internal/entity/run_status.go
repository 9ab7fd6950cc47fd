package entity

import "time"

type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStats counts what happened during one crawl run.
type RunStats struct {
	TasksIssued       int  `json:"tasks_issued"`
	TasksDeduplicated int  `json:"tasks_deduplicated"`
	ExactMatchSkipped int  `json:"exact_match_skipped"`
	ListingsFound     int  `json:"listings_found"`
	DetailsExtracted  int  `json:"details_extracted"`
	DetailErrors      int  `json:"detail_errors"`
	FetchFailures     int  `json:"fetch_failures"`
	SinkFailures      int  `json:"sink_failures"`
	BudgetExhausted   bool `json:"budget_exhausted"`
	Cancelled         bool `json:"cancelled"`
}

// RunStatus is the externally visible state of a crawl run.
type RunStatus struct {
	ID            string     `json:"id"`
	Queries       []string   `json:"queries"`
	ExactMatch    bool       `json:"exact_match"`
	State         RunState   `json:"state"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Stats         RunStats   `json:"stats"`
	FailureReason string     `json:"failure_reason,omitempty"`
}
