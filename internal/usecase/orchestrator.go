package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/extractor"
	"github.com/user/registry-crawler/internal/repository"
	"github.com/user/registry-crawler/pkg/utils"
	"go.uber.org/zap"
)

const (
	searchQueryField = "query"
	formContentType  = "application/x-www-form-urlencoded"
)

// Outcome is everything produced by handling one fetched page.
type Outcome struct {
	// Tasks are novel follow-up tasks, already recorded in the dedup set.
	Tasks   []entity.FetchTask
	Records []entity.Record

	ListingsFound     int
	Deduplicated      int
	ExactMatchSkipped int
	DetailFailed      bool
}

// Orchestrator is the per-run frontier state machine. It builds the
// initial search tasks, turns search pages into detail tasks and detail
// pages into records. It performs no network I/O of its own; the only
// shared state is the dedup set.
type Orchestrator struct {
	searchURL       string
	persistListings bool
	listings        *extractor.ListingExtractor
	details         *extractor.DetailExtractor
	seen            repository.TaskDeduper
	now             func() time.Time
	logger          *zap.Logger
}

func NewOrchestrator(
	searchURL string,
	persistListings bool,
	listings *extractor.ListingExtractor,
	details *extractor.DetailExtractor,
	seen repository.TaskDeduper,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		searchURL:       searchURL,
		persistListings: persistListings,
		listings:        listings,
		details:         details,
		seen:            seen,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger.Named("orchestrator"),
	}
}

// NewSearchTask builds the form POST that searches the registry for q.
func NewSearchTask(searchURL string, q entity.SearchQuery) entity.FetchTask {
	return entity.FetchTask{
		Method:      http.MethodPost,
		URL:         searchURL,
		Payload:     utils.FormEncode(searchQueryField, q.Text),
		ContentType: formContentType,
		Purpose:     entity.PurposeSearch,
		Query:       q,
	}
}

// NewDetailTask builds the GET for a detail page. The originating query,
// context included, is carried over unchanged.
func NewDetailTask(detailURL string, origin entity.SearchQuery) entity.FetchTask {
	return entity.FetchTask{
		Method:  http.MethodGet,
		URL:     detailURL,
		Purpose: entity.PurposeDetail,
		Query:   origin,
	}
}

// Start returns one search task per distinct non-blank query, in order.
func (o *Orchestrator) Start(ctx context.Context, queries []entity.SearchQuery) ([]entity.FetchTask, error) {
	var tasks []entity.FetchTask
	valid := 0
	for _, q := range queries {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		valid++
		task := NewSearchTask(o.searchURL, q)
		novel, err := o.seen.MarkIfAbsent(ctx, task.Identity())
		if err != nil {
			return nil, fmt.Errorf("mark search task for %q: %w", q.Text, err)
		}
		if !novel {
			o.logger.Debug("duplicate search query dropped", zap.String("query", q.Text))
			continue
		}
		tasks = append(tasks, task)
	}
	if valid == 0 {
		return nil, ErrNoQueries
	}
	return tasks, nil
}

// Handle dispatches a fetched page on the purpose recorded on its task.
func (o *Orchestrator) Handle(ctx context.Context, page *entity.Page) (Outcome, error) {
	switch page.Task.Purpose {
	case entity.PurposeSearch:
		return o.OnSearchResponse(ctx, page)
	case entity.PurposeDetail:
		return o.OnDetailResponse(ctx, page), nil
	default:
		return Outcome{}, fmt.Errorf("unknown task purpose %q for %s", page.Task.Purpose, page.Task.URL)
	}
}

// OnSearchResponse extracts listings and returns the detail tasks that
// were not issued before in this run.
func (o *Orchestrator) OnSearchResponse(ctx context.Context, page *entity.Page) (Outcome, error) {
	var out Outcome
	origin := page.Task.Query

	listings, err := o.listings.Extract(page.HTML, pageURL(page))
	if err != nil {
		return out, fmt.Errorf("extract listings for %q: %w", origin.Text, err)
	}
	out.ListingsFound = len(listings)

	for i := range listings {
		l := listings[i]
		if l.SearchQuery == nil {
			text := origin.Text
			l.SearchQuery = &text
		}
		if origin.Context.ExactMatchOnly && !MatchesQuery(l.BusinessName, origin.Text) {
			out.ExactMatchSkipped++
			o.logger.Debug("listing skipped by exact match",
				zap.String("business_name", l.BusinessName), zap.String("query", origin.Text))
			continue
		}
		if o.persistListings {
			at := o.now()
			l.ExtractedAt = &at
			out.Records = append(out.Records, &l)
		}
		if l.DetailURL == nil {
			continue
		}

		task := NewDetailTask(*l.DetailURL, origin)
		novel, err := o.seen.MarkIfAbsent(ctx, task.Identity())
		if err != nil {
			return out, fmt.Errorf("mark detail task %s: %w", task.URL, err)
		}
		if !novel {
			out.Deduplicated++
			continue
		}
		out.Tasks = append(out.Tasks, task)
	}

	o.logger.Info("search page processed",
		zap.String("query", origin.Text),
		zap.Int("listings", out.ListingsFound),
		zap.Int("detail_tasks", len(out.Tasks)),
		zap.Int("deduplicated", out.Deduplicated),
		zap.Int("exact_match_skipped", out.ExactMatchSkipped))
	return out, nil
}

// OnDetailResponse extracts the business detail. It always yields exactly
// one record: the detail, or an error record carrying the raw page.
func (o *Orchestrator) OnDetailResponse(_ context.Context, page *entity.Page) Outcome {
	result := o.details.Extract(page.HTML, pageURL(page))
	at := o.now()
	if result.OK() {
		result.Detail.ExtractedAt = &at
	} else {
		result.Failure.ExtractedAt = &at
	}
	return Outcome{
		Records:      []entity.Record{result.Record()},
		DetailFailed: !result.OK(),
	}
}

// MatchesQuery compares a listing name to the query it was found under.
// Whitespace runs are collapsed and case is ignored.
func MatchesQuery(name, query string) bool {
	return strings.EqualFold(normalizeSpace(name), normalizeSpace(query))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pageURL is the URL extraction resolves against: the task's own URL.
func pageURL(page *entity.Page) string {
	if page.Task.URL != "" {
		return page.Task.URL
	}
	return page.URL
}
