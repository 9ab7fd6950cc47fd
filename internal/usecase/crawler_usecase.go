package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/extractor"
	"github.com/user/registry-crawler/internal/repository"
	"github.com/user/registry-crawler/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunConfig is the input of one crawl run.
type RunConfig struct {
	ID         string
	Queries    []string
	ExactMatch bool
	// MaxRequests caps the number of tasks issued; 0 means unlimited.
	MaxRequests int
}

// Frontier is the per-run task queue plus the set of identities issued.
type Frontier struct {
	Queue repository.TaskQueue
	Seen  repository.TaskDeduper
}

// FrontierFactory returns a fresh frontier scoped to one run.
type FrontierFactory func(runID string) Frontier

// CrawlerOptions holds the static settings shared by every run.
type CrawlerOptions struct {
	SearchURL       string
	Workers         int
	PersistListings bool
}

// Crawler drives crawl runs: a single dispatcher pops tasks from the
// frontier and hands them to at most Workers concurrent fetch/parse
// pipelines.
type Crawler struct {
	opts        CrawlerOptions
	fetcher     repository.Fetcher
	sink        repository.RecordSink
	failedTasks repository.FailedTaskRepository
	frontiers   FrontierFactory
	listings    *extractor.ListingExtractor
	details     *extractor.DetailExtractor
	logger      *zap.Logger
}

// NewCrawler creates a new crawler. failedTasks may be nil.
func NewCrawler(
	opts CrawlerOptions,
	fetcher repository.Fetcher,
	sink repository.RecordSink,
	failedTasks repository.FailedTaskRepository,
	frontiers FrontierFactory,
	listings *extractor.ListingExtractor,
	details *extractor.DetailExtractor,
	logger *zap.Logger,
) *Crawler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Crawler{
		opts:        opts,
		fetcher:     fetcher,
		sink:        sink,
		failedTasks: failedTasks,
		frontiers:   frontiers,
		listings:    listings,
		details:     details,
		logger:      logger.Named("crawler"),
	}
}

type taskResult struct {
	task         entity.FetchTask
	outcome      Outcome
	fetchErr     error
	handleErr    error
	sinkFailures int
}

// Run executes one crawl to completion. It returns ErrNoQueries before
// issuing anything when cfg has no usable query. Cancelling ctx stops new
// tasks from being issued; tasks already in flight finish and their
// records are still written.
func (c *Crawler) Run(ctx context.Context, cfg RunConfig) (*entity.RunStats, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	log := c.logger.With(zap.String("run_id", cfg.ID))

	queries := make([]entity.SearchQuery, 0, len(cfg.Queries))
	for _, q := range cfg.Queries {
		queries = append(queries, entity.SearchQuery{
			Text:    q,
			Context: entity.QueryContext{ExactMatchOnly: cfg.ExactMatch},
		})
	}

	frontier := c.frontiers(cfg.ID)
	orch := NewOrchestrator(c.opts.SearchURL, c.opts.PersistListings, c.listings, c.details, frontier.Seen, c.logger)

	initial, err := orch.Start(ctx, queries)
	if err != nil {
		return nil, err
	}
	for _, task := range initial {
		if err := frontier.Queue.Push(ctx, task); err != nil {
			return nil, fmt.Errorf("enqueue search task: %w", err)
		}
	}
	log.Info("crawl run started",
		zap.Strings("queries", cfg.Queries), zap.Bool("exact_match", cfg.ExactMatch),
		zap.Int("max_requests", cfg.MaxRequests), zap.Int("workers", c.opts.Workers))

	// In-flight work must not be interrupted by cancellation of the run.
	workCtx := context.WithoutCancel(ctx)

	stats := &entity.RunStats{}
	results := make(chan taskResult)
	var g errgroup.Group
	inflight := 0
	stopped := false
	done := ctx.Done()

	for {
		if !stopped && ctx.Err() != nil {
			stats.Cancelled = true
			stopped = true
			done = nil
		}
		for !stopped && inflight < c.opts.Workers {
			if cfg.MaxRequests > 0 && stats.TasksIssued >= cfg.MaxRequests {
				if pending, _ := frontier.Queue.Size(workCtx); pending > 0 {
					stats.BudgetExhausted = true
					stopped = true
					log.Info("request budget exhausted", zap.Int("max_requests", cfg.MaxRequests), zap.Int64("pending", pending))
				}
				break
			}
			task, ok, err := frontier.Queue.Pop(workCtx)
			if err != nil {
				log.Error("failed to pop task from queue", zap.Error(err))
				stopped = true
				break
			}
			if !ok {
				break
			}
			stats.TasksIssued++
			inflight++
			g.Go(func() error {
				results <- c.process(workCtx, orch, frontier.Queue, task)
				return nil
			})
		}
		if size, err := frontier.Queue.Size(workCtx); err == nil {
			metrics.FrontierSize.Set(float64(size))
		}

		if inflight == 0 {
			break
		}
		select {
		case r := <-results:
			inflight--
			c.account(log, stats, r)
		case <-done:
			stats.Cancelled = true
			stopped = true
			done = nil
			log.Warn("crawl run cancelled, waiting for in-flight tasks", zap.Int("in_flight", inflight))
		}
	}
	_ = g.Wait()

	log.Info("crawl run finished",
		zap.Int("tasks_issued", stats.TasksIssued),
		zap.Int("details", stats.DetailsExtracted),
		zap.Int("detail_errors", stats.DetailErrors),
		zap.Int("fetch_failures", stats.FetchFailures),
		zap.Bool("budget_exhausted", stats.BudgetExhausted),
		zap.Bool("cancelled", stats.Cancelled))
	return stats, nil
}

// process runs one fetch/parse pipeline and flushes its records and
// follow-up tasks before reporting back to the dispatcher.
func (c *Crawler) process(ctx context.Context, orch *Orchestrator, queue repository.TaskQueue, task entity.FetchTask) taskResult {
	res := taskResult{task: task}
	purpose := string(task.Purpose)

	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, task)
	metrics.FetchDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TasksTotal.WithLabelValues(purpose, "failure", fetchErrorType(err)).Inc()
		res.fetchErr = err
		c.recordFailure(ctx, task, err)
		return res
	}
	metrics.TasksTotal.WithLabelValues(purpose, "success", "").Inc()

	res.outcome, res.handleErr = orch.Handle(ctx, page)
	res.sinkFailures = c.flush(ctx, res.outcome.Records)
	for _, next := range res.outcome.Tasks {
		if err := queue.Push(ctx, next); err != nil {
			c.logger.Error("failed to enqueue task", zap.String("url", next.URL), zap.Error(err))
		}
	}
	if res.outcome.Deduplicated > 0 {
		metrics.TasksDeduplicated.Add(float64(res.outcome.Deduplicated))
	}
	return res
}

// flush appends records to the sink and returns how many were lost.
func (c *Crawler) flush(ctx context.Context, records []entity.Record) int {
	if batch, ok := c.sink.(repository.BatchRecordSink); ok && len(records) > 1 {
		if err := batch.AppendAll(ctx, records); err != nil {
			c.logger.Error("failed to append record batch", zap.Int("records", len(records)), zap.Error(err))
			return len(records)
		}
		for _, record := range records {
			metrics.RecordsTotal.WithLabelValues(record.RecordType()).Inc()
		}
		return 0
	}

	failures := 0
	for _, record := range records {
		if err := c.sink.Append(ctx, record); err != nil {
			failures++
			c.logger.Error("failed to append record",
				zap.String("page_type", record.RecordType()), zap.String("key", record.Key()), zap.Error(err))
			continue
		}
		metrics.RecordsTotal.WithLabelValues(record.RecordType()).Inc()
	}
	return failures
}

func (c *Crawler) account(log *zap.Logger, stats *entity.RunStats, r taskResult) {
	switch {
	case r.fetchErr != nil:
		stats.FetchFailures++
		log.Warn("fetch failed", zap.String("url", r.task.URL),
			zap.String("purpose", string(r.task.Purpose)), zap.Error(r.fetchErr))
		return
	case r.handleErr != nil:
		log.Error("failed to handle page", zap.String("url", r.task.URL), zap.Error(r.handleErr))
	}

	o := r.outcome
	stats.ListingsFound += o.ListingsFound
	stats.TasksDeduplicated += o.Deduplicated
	stats.ExactMatchSkipped += o.ExactMatchSkipped
	stats.SinkFailures += r.sinkFailures
	if r.task.Purpose == entity.PurposeDetail {
		if o.DetailFailed {
			stats.DetailErrors++
		} else {
			stats.DetailsExtracted++
		}
	}
}

func fetchErrorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, repository.ErrRequestBuild):
		return "request"
	default:
		return "transport"
	}
}

func (c *Crawler) recordFailure(ctx context.Context, task entity.FetchTask, fetchErr error) {
	if c.failedTasks == nil {
		return
	}
	failed := &entity.FailedTask{
		Identity:             task.Identity(),
		Method:               task.Method,
		URL:                  task.URL,
		Purpose:              task.Purpose,
		FailureReason:        fetchErr.Error(),
		Attempts:             1,
		LastAttemptTimestamp: time.Now().UTC(),
	}
	var statusErr *repository.StatusError
	if errors.As(fetchErr, &statusErr) {
		failed.HTTPStatusCode = statusErr.StatusCode
	}
	var attemptsErr interface{ Attempts() int }
	if errors.As(fetchErr, &attemptsErr) {
		failed.Attempts = attemptsErr.Attempts()
	}
	if err := c.failedTasks.SaveOrUpdate(ctx, failed); err != nil {
		c.logger.Error("failed to save failed task", zap.String("url", task.URL), zap.Error(err))
	}
}
