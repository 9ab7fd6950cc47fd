package repository

import (
	"errors"
	"fmt"
)

var (
	ErrFetchTimeout     = errors.New("fetch timed out")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrRequestBuild     = errors.New("could not build request")
)

// StatusError reports a non-2xx response. It wraps ErrUnexpectedStatus.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }
