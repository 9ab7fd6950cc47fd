// Package chromedp_fetcher executes fetch tasks in a headless browser. It
// is used when the registry only serves results to a real browser session.
package chromedp_fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/repository"
	"go.uber.org/zap"
)

const (
	// resultsSelector only exists on a search results page, never on the
	// page the form is submitted from.
	resultsSelector = "#search-query"
	pageSelector    = "body"
)

// submitFormJS posts a hidden form built from the task payload, as the
// registry's own search form does.
const submitFormJS = `(() => {
	const form = document.createElement("form");
	form.method = "POST";
	form.action = %s;
	for (const [name, value] of Object.entries(%s)) {
		const input = document.createElement("input");
		input.type = "hidden";
		input.name = name;
		input.value = value;
		form.appendChild(input);
	}
	document.body.appendChild(form);
	form.submit();
})()`

// Options configures the browser.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
}

// Fetcher implements repository.Fetcher with chromedp. Search tasks are
// replayed by posting their form payload from the registry's origin and
// waiting for the results page; detail tasks are plain navigations.
type Fetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// NewFetcher starts a browser allocator. Call Close to release it.
func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Fetcher{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		timeout:     opts.Timeout,
		logger:      logger.Named("browser_fetcher"),
	}
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch runs the task in a fresh browser tab.
func (f *Fetcher) Fetch(ctx context.Context, task entity.FetchTask) (*entity.Page, error) {
	actions, err := f.actions(task)
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(f.allocCtx, chromedp.WithLogf(f.logger.Sugar().Debugf))
	defer tabCancel()
	// Tie the tab to the caller's context as well as to the browser.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, f.timeout)
		defer cancel()
	}

	// The last document response is the page we end up on, so a form
	// submit reports the status of the results page.
	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.Store(e.Response.Status)
		}
	})

	var html, location string
	actions = append([]chromedp.Action{network.Enable()}, actions...)
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		// An error page lacks the element we wait for; report its status
		// rather than the resulting timeout.
		if code := documentStatus(status.Load()); code >= http.StatusBadRequest {
			return nil, &repository.StatusError{StatusCode: code, URL: task.URL}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrFetchTimeout, task.URL, err)
		}
		return nil, fmt.Errorf("browser fetch %s: %w", task.URL, err)
	}

	code := documentStatus(status.Load())
	if code >= http.StatusBadRequest {
		return nil, &repository.StatusError{StatusCode: code, URL: task.URL}
	}

	f.logger.Debug("page rendered", zap.String("url", location), zap.String("purpose", string(task.Purpose)), zap.Int("status", code))
	return &entity.Page{Task: task, URL: location, StatusCode: code, HTML: html}, nil
}

// documentStatus treats a page with no observed document response as OK.
func documentStatus(observed int64) int {
	if observed == 0 {
		return http.StatusOK
	}
	return int(observed)
}

// actions returns the steps that load the task's page. The last step
// waits for an element of the target page, so the document read after it
// is never the one a navigation started from.
func (f *Fetcher) actions(task entity.FetchTask) ([]chromedp.Action, error) {
	switch {
	case task.Method == http.MethodGet:
		return []chromedp.Action{
			chromedp.Navigate(task.URL),
			chromedp.WaitReady(waitSelector(task), chromedp.ByQuery),
		}, nil
	case task.Method == http.MethodPost && task.Purpose == entity.PurposeSearch:
		origin, script, err := formSubmission(task)
		if err != nil {
			return nil, err
		}
		return []chromedp.Action{
			chromedp.Navigate(origin),
			chromedp.Evaluate(script, nil),
			chromedp.WaitReady(waitSelector(task), chromedp.ByQuery),
		}, nil
	}
	return nil, fmt.Errorf("%w: browser cannot replay %s %s", repository.ErrRequestBuild, task.Method, task.URL)
}

func waitSelector(task entity.FetchTask) string {
	if task.Purpose == entity.PurposeSearch {
		return resultsSelector
	}
	return pageSelector
}

// formSubmission returns the origin page to submit from and the script
// that posts the task's form payload to its URL.
func formSubmission(task entity.FetchTask) (origin, script string, err error) {
	target, err := url.Parse(task.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return "", "", fmt.Errorf("%w: invalid search url %q", repository.ErrRequestBuild, task.URL)
	}
	values, err := url.ParseQuery(string(task.Payload))
	if err != nil {
		return "", "", fmt.Errorf("%w: decode form payload: %v", repository.ErrRequestBuild, err)
	}
	fields := make(map[string]string, len(values))
	for name := range values {
		fields[name] = values.Get(name)
	}

	action, err := json.Marshal(task.URL)
	if err != nil {
		return "", "", err
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", "", err
	}
	origin = (&url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/"}).String()
	return origin, fmt.Sprintf(submitFormJS, action, encoded), nil
}
