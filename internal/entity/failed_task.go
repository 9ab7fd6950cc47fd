package entity

import "time"

// FailedTask is a fetch task the transport could not complete.
type FailedTask struct {
	ID                   int64
	Identity             string
	Method               string
	URL                  string
	Purpose              Purpose
	FailureReason        string
	HTTPStatusCode       int
	Attempts             int
	LastAttemptTimestamp time.Time
}
