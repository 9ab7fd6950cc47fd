// Package app assembles the crawler from configuration. Both binaries use
// it so the CLI and the API crawl with identical wiring.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/registry-crawler/internal/adapter/chromedp_fetcher"
	"github.com/user/registry-crawler/internal/adapter/filesink"
	"github.com/user/registry-crawler/internal/adapter/httpfetch"
	"github.com/user/registry-crawler/internal/adapter/memory"
	"github.com/user/registry-crawler/internal/adapter/multisink"
	"github.com/user/registry-crawler/internal/adapter/postgres"
	redis_adapter "github.com/user/registry-crawler/internal/adapter/redis"
	"github.com/user/registry-crawler/internal/delivery/http/handler"
	"github.com/user/registry-crawler/internal/extractor"
	"github.com/user/registry-crawler/internal/repository"
	"github.com/user/registry-crawler/internal/usecase"
	"github.com/user/registry-crawler/pkg/config"
	"go.uber.org/zap"
)

var ErrNoSink = errors.New("no record sink configured: set OUTPUT_PATH, CSV_EXPORT_PATH or POSTGRES_URL")

// App holds the assembled crawler and the resources it owns.
type App struct {
	Crawler     *usecase.Crawler
	FailedTasks repository.FailedTaskRepository
	Checks      map[string]handler.PingFunc

	closers []func()
}

// Build connects to every configured backend and wires the crawler. On
// error everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{Checks: map[string]handler.PingFunc{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	listings, err := extractor.NewListingExtractor(cfg.BaseURL, logger)
	if err != nil {
		return nil, err
	}
	details := extractor.NewDetailExtractor(logger)

	fetcher, err := a.buildFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	var sinks []repository.RecordSink
	if cfg.OutputPath != "" {
		s, err := filesink.OpenJSONL(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { s.Close() })
		sinks = append(sinks, s)
	}
	if cfg.CSVExportPath != "" {
		s, err := filesink.OpenCSV(cfg.CSVExportPath)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { s.Close() })
		sinks = append(sinks, s)
	}

	a.FailedTasks = memory.NewFailedTaskRepo()
	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.onClose(pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		sinks = append(sinks, postgres.NewRecordSink(pool))
		a.FailedTasks = postgres.NewFailedTaskRepo(pool)
		a.Checks["postgres"] = pool.Ping
		logger.Info("postgres connection pool established")
	}
	if len(sinks) == 0 {
		return nil, ErrNoSink
	}
	var sink repository.RecordSink = multisink.New(sinks...)
	if len(sinks) == 1 {
		sink = sinks[0]
	}

	frontiers := usecase.FrontierFactory(func(string) usecase.Frontier {
		return usecase.Frontier{Queue: memory.NewTaskQueue(), Seen: memory.NewTaskDeduper()}
	})
	if cfg.RedisAddr != "" {
		client, err := redis_adapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { client.Close() })
		ttl := cfg.DedupTTL()
		frontiers = func(runID string) usecase.Frontier {
			return usecase.Frontier{
				Queue: redis_adapter.NewTaskQueue(client, runID, ttl),
				Seen:  redis_adapter.NewTaskDeduper(client, runID, ttl),
			}
		}
		a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	a.Crawler = usecase.NewCrawler(
		usecase.CrawlerOptions{
			SearchURL:       cfg.SearchURL(),
			Workers:         cfg.CrawlWorkers,
			PersistListings: cfg.PersistListing,
		},
		fetcher, sink, a.FailedTasks, frontiers, listings, details, logger,
	)
	return a, nil
}

func (a *App) buildFetcher(cfg *config.Config, logger *zap.Logger) (repository.Fetcher, error) {
	proxies := config.SplitList(cfg.Proxies)
	userAgents := config.SplitList(cfg.UserAgents)

	if cfg.FetchMode == config.FetchModeBrowser {
		opts := chromedp_fetcher.Options{Timeout: cfg.Timeout()}
		if len(userAgents) > 0 {
			opts.UserAgent = userAgents[0]
		}
		if len(proxies) > 0 {
			opts.Proxy = proxies[0]
		}
		f := chromedp_fetcher.NewFetcher(opts, logger)
		a.onClose(f.Close)
		return f, nil
	}

	rotator, err := httpfetch.NewRotator(proxies, userAgents)
	if err != nil {
		return nil, fmt.Errorf("configure proxies: %w", err)
	}
	return httpfetch.NewFetcher(httpfetch.Options{
		Timeout:      cfg.Timeout(),
		MaxRetries:   cfg.MaxRetries,
		RateLimitRPS: cfg.RateLimitRPS,
		Rotator:      rotator,
	}, logger)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
