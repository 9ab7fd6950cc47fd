// Package httpfetch executes fetch tasks over plain HTTP with rate
// limiting, retries and user-agent/proxy rotation.
package httpfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 10 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout      time.Duration
	MaxRetries   int
	RateLimitRPS float64 // <= 0 disables rate limiting
	BaseBackoff  time.Duration
	Rotator      *Rotator
}

// Fetcher implements repository.Fetcher with net/http.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	rotator     *Rotator
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

// FetchError is returned once every attempt at a task has failed.
type FetchError struct {
	Err      error
	attempts int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("after %d attempt(s): %v", e.attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Attempts is the number of requests made for the task.
func (e *FetchError) Attempts() int { return e.attempts }

func NewFetcher(opts Options, logger *zap.Logger) (*Fetcher, error) {
	rotator := opts.Rotator
	if rotator == nil {
		var err error
		if rotator, err = NewRotator(nil, nil); err != nil {
			return nil, err
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = rotator.Proxy

	return &Fetcher{
		client:      &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:     limiter,
		rotator:     rotator,
		maxRetries:  opts.MaxRetries,
		baseBackoff: backoff,
		logger:      logger.Named("http_fetcher"),
	}, nil
}

// Fetch performs the task, retrying transient failures (transport errors,
// timeouts, 429 and 5xx) up to MaxRetries times.
func (f *Fetcher) Fetch(ctx context.Context, task entity.FetchTask) (*entity.Page, error) {
	var lastErr error
	attempts := 0
	for {
		if attempts > 0 {
			if err := sleep(ctx, f.backoff(attempts)); err != nil {
				break
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts++
		page, err := f.do(ctx, task)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retryable(err) || attempts > f.maxRetries {
			break
		}
		f.logger.Debug("fetch attempt failed, retrying",
			zap.String("url", task.URL), zap.Int("attempt", attempts), zap.Error(err))
	}
	return nil, &FetchError{Err: lastErr, attempts: attempts}
}

func (f *Fetcher) do(ctx context.Context, task entity.FetchTask) (*entity.Page, error) {
	var body io.Reader
	if len(task.Payload) > 0 {
		body = bytes.NewReader(task.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, task.Method, task.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrRequestBuild, err)
	}
	if task.ContentType != "" {
		req.Header.Set("Content-Type", task.ContentType)
	}
	req.Header.Set("User-Agent", f.rotator.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s %s: %v", repository.ErrFetchTimeout, task.Method, task.URL, err)
		}
		return nil, fmt.Errorf("%s %s: %w", task.Method, task.URL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: read %s: %v", repository.ErrFetchTimeout, task.URL, err)
		}
		return nil, fmt.Errorf("read %s: %w", task.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &repository.StatusError{StatusCode: resp.StatusCode, URL: task.URL}
	}

	return &entity.Page{
		Task:       task,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       string(raw),
	}, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.baseBackoff << (attempt - 1)
	if limit := 30 * time.Second; d > limit {
		d = limit
	}
	return d
}

func retryable(err error) bool {
	if errors.Is(err, repository.ErrRequestBuild) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *repository.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
