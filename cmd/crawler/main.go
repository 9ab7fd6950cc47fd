package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/user/registry-crawler/internal/app"
	"github.com/user/registry-crawler/internal/usecase"
	"github.com/user/registry-crawler/pkg/config"
	"github.com/user/registry-crawler/pkg/logger"
	"github.com/user/registry-crawler/pkg/metrics"
	"go.uber.org/zap"
)

const usage = `usage: crawler [flags] ["query one,query two" ...]

Queries given as arguments take priority over the QUERIES setting.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("crawler", flag.ContinueOnError)
	envFile := fs.String("env", ".env", "path to an optional env file")
	exact := fs.Bool("exact", false, "only follow listings whose name equals the query (overrides EXACT_MATCH)")
	maxRequests := fs.Int("max-requests", -1, "maximum number of requests for the run, 0 for unlimited (overrides MAX_REQUESTS)")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadFrom(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return 1
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()
	metrics.Init()

	queries := config.ParseQueries(strings.Join(fs.Args(), ","))
	if len(queries) == 0 {
		queries = config.ParseQueries(cfg.Queries)
	}
	if len(queries) == 0 {
		log.Error("no search queries provided; pass them as arguments or set QUERIES")
		fs.Usage()
		return 1
	}

	runCfg := usecase.RunConfig{
		Queries:     queries,
		ExactMatch:  cfg.ExactMatch || *exact,
		MaxRequests: cfg.MaxRequests,
	}
	if *maxRequests >= 0 {
		runCfg.MaxRequests = *maxRequests
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise crawler", zap.Error(err))
		return 1
	}
	defer a.Close()

	stats, err := a.Crawler.Run(ctx, runCfg)
	if err != nil {
		if errors.Is(err, usecase.ErrNoQueries) {
			log.Error("no usable search queries", zap.Strings("queries", queries))
		} else {
			log.Error("crawl run failed", zap.Error(err))
		}
		return 1
	}

	log.Info("crawl complete",
		zap.Int("tasks_issued", stats.TasksIssued),
		zap.Int("listings_found", stats.ListingsFound),
		zap.Int("details_extracted", stats.DetailsExtracted),
		zap.Int("detail_errors", stats.DetailErrors),
		zap.Int("fetch_failures", stats.FetchFailures),
		zap.Int("sink_failures", stats.SinkFailures),
		zap.Int("deduplicated", stats.TasksDeduplicated),
		zap.Bool("budget_exhausted", stats.BudgetExhausted),
		zap.Bool("cancelled", stats.Cancelled),
		zap.String("output", cfg.OutputPath))
	return 0
}
