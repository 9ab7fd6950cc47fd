package chromedp_fetcher

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/internal/repository"
	"go.uber.org/zap"
)

const (
	detailURL = "https://business.egov.mv/BusinessRegistry/ViewDetails/1"
	searchURL = "https://business.egov.mv/BusinessRegistry/SearchBusinessRegistry"
)

func searchTask(query string) entity.FetchTask {
	return entity.FetchTask{
		Method:      http.MethodPost,
		URL:         searchURL,
		Payload:     []byte("query=" + strings.ReplaceAll(query, " ", "+")),
		ContentType: "application/x-www-form-urlencoded",
		Purpose:     entity.PurposeSearch,
		Query:       entity.SearchQuery{Text: query},
	}
}

func TestActions(t *testing.T) {
	f := &Fetcher{logger: zap.NewNop()}

	tests := []struct {
		name    string
		task    entity.FetchTask
		actions int
		wantErr error
	}{
		{"detail navigation", entity.FetchTask{Method: http.MethodGet, URL: detailURL, Purpose: entity.PurposeDetail}, 2, nil},
		{"search form", searchTask("Example Co"), 3, nil},
		{"search without host", entity.FetchTask{Method: http.MethodPost, URL: "/SearchBusinessRegistry", Purpose: entity.PurposeSearch}, 0, repository.ErrRequestBuild},
		{"arbitrary post", entity.FetchTask{Method: http.MethodPost, URL: "https://business.egov.mv/x", Purpose: entity.PurposeDetail}, 0, repository.ErrRequestBuild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := f.actions(tt.task)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(actions) != tt.actions {
				t.Errorf("got %d actions, want %d", len(actions), tt.actions)
			}
		})
	}
}

func TestWaitSelector(t *testing.T) {
	if got := waitSelector(searchTask("Example Co")); got != "#search-query" {
		t.Errorf("search waits for %q, want the results echo", got)
	}
	if got := waitSelector(entity.FetchTask{Method: http.MethodGet, URL: detailURL, Purpose: entity.PurposeDetail}); got != "body" {
		t.Errorf("detail waits for %q", got)
	}
}

func TestFormSubmission(t *testing.T) {
	origin, script, err := formSubmission(searchTask("Example Co"))
	if err != nil {
		t.Fatal(err)
	}
	if origin != "https://business.egov.mv/" {
		t.Errorf("origin = %q", origin)
	}
	for _, want := range []string{
		`form.method = "POST"`,
		`form.action = "https://business.egov.mv/BusinessRegistry/SearchBusinessRegistry"`,
		`{"query":"Example Co"}`,
		"form.submit()",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script does not contain %s:\n%s", want, script)
		}
	}
}

func TestFormSubmission_EscapesValues(t *testing.T) {
	task := searchTask("x")
	task.Payload = []byte(`query=%22%29%3B+alert%281%29%3B+%28%22`)

	_, script, err := formSubmission(task)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, `{"query":"\"); alert(1); (\""}`) {
		t.Errorf("query value not JSON-escaped:\n%s", script)
	}
}

func TestDocumentStatus(t *testing.T) {
	for observed, want := range map[int64]int{0: http.StatusOK, 200: 200, 404: 404, 503: 503} {
		if got := documentStatus(observed); got != want {
			t.Errorf("documentStatus(%d) = %d, want %d", observed, got, want)
		}
	}
}
