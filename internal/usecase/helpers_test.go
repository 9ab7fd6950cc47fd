package usecase

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/user/registry-crawler/internal/adapter/memory"
	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/extractor"
	"go.uber.org/zap"
)

const (
	testBaseURL   = "https://business.egov.mv"
	testSearchURL = "https://business.egov.mv/BusinessRegistry/SearchBusinessRegistry"
	exampleCoURL  = "https://business.egov.mv/BusinessRegistry/ViewDetails/217847?key=-706503270"
	anotherURL    = "https://business.egov.mv/BusinessRegistry/ViewDetails/300001?key=42"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("../extractor/testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(b)
}

func newExtractors(t *testing.T) (*extractor.ListingExtractor, *extractor.DetailExtractor) {
	t.Helper()
	listings, err := extractor.NewListingExtractor(testBaseURL, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return listings, extractor.NewDetailExtractor(zap.NewNop())
}

// fakeFetcher serves canned pages. respond decides the HTML or error for
// each task; every call is recorded.
type fakeFetcher struct {
	respond func(task entity.FetchTask) (string, error)

	mu    sync.Mutex
	calls []entity.FetchTask
}

func (f *fakeFetcher) Fetch(_ context.Context, task entity.FetchTask) (*entity.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, task)
	f.mu.Unlock()

	html, err := f.respond(task)
	if err != nil {
		return nil, err
	}
	return &entity.Page{Task: task, URL: task.URL, StatusCode: 200, HTML: html}, nil
}

func (f *fakeFetcher) callsFor(purpose entity.Purpose) []entity.FetchTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.FetchTask
	for _, c := range f.calls {
		if c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

func memoryFrontiers(string) Frontier {
	return Frontier{Queue: memory.NewTaskQueue(), Seen: memory.NewTaskDeduper()}
}
