package extractor

import (
	"os"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/registry-crawler/internal/entity"
	"go.uber.org/zap"
)

const (
	testBaseURL   = "https://business.egov.mv"
	testSearchURL = "https://business.egov.mv/BusinessRegistry/SearchBusinessRegistry"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(b)
}

func newTestListingExtractor(t *testing.T) *ListingExtractor {
	t.Helper()
	e, err := NewListingExtractor(testBaseURL, zap.NewNop())
	if err != nil {
		t.Fatalf("NewListingExtractor: %v", err)
	}
	return e
}

func TestListingExtractor_Extract(t *testing.T) {
	e := newTestListingExtractor(t)
	listings, err := e.Extract(readFixture(t, "search_results.html"), testSearchURL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("got %d listings, want 3 (blank-name card skipped)", len(listings))
	}

	tests := []struct {
		name      string
		category  string
		bizType   *string
		status    *string
		id        *string
		detailURL *string
		hasLink   bool
	}{
		{
			name:      "Example Co",
			category:  CategorySoleProprietorship,
			bizType:   strPtr("Sole Proprietorship"),
			status:    strPtr("Registered"),
			id:        strPtr("217847"),
			detailURL: strPtr("https://business.egov.mv/BusinessRegistry/ViewDetails/217847?key=-706503270"),
			hasLink:   true,
		},
		{
			name:     "EXAMPLE CO HOLDINGS",
			category: CategoryBusinessName,
			bizType:  strPtr("Business Name"),
			status:   strPtr("Dissolved"),
		},
		{
			name:      "Another Business",
			category:  CategoryUnknown,
			bizType:   strPtr("Private Company"),
			id:        strPtr("300001"),
			detailURL: strPtr("https://business.egov.mv/BusinessRegistry/ViewDetails/300001?key=42"),
			hasLink:   true,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listings[i]
			if got.BusinessName != tt.name {
				t.Errorf("BusinessName = %q, want %q", got.BusinessName, tt.name)
			}
			if got.BusinessCategory != tt.category {
				t.Errorf("BusinessCategory = %q, want %q", got.BusinessCategory, tt.category)
			}
			if !equalPtr(got.BusinessType, tt.bizType) {
				t.Errorf("BusinessType = %s, want %s", show(got.BusinessType), show(tt.bizType))
			}
			if !equalPtr(got.Status, tt.status) {
				t.Errorf("Status = %s, want %s", show(got.Status), show(tt.status))
			}
			if !equalPtr(got.BusinessID, tt.id) {
				t.Errorf("BusinessID = %s, want %s", show(got.BusinessID), show(tt.id))
			}
			if !equalPtr(got.DetailURL, tt.detailURL) {
				t.Errorf("DetailURL = %s, want %s", show(got.DetailURL), show(tt.detailURL))
			}
			if got.HasDetailLink != tt.hasLink {
				t.Errorf("HasDetailLink = %v, want %v", got.HasDetailLink, tt.hasLink)
			}
			if !equalPtr(got.SearchQuery, strPtr("Example Co")) {
				t.Errorf("SearchQuery = %s, want Example Co", show(got.SearchQuery))
			}
			if got.SourceURL != testSearchURL {
				t.Errorf("SourceURL = %q", got.SourceURL)
			}
			if got.Domain != "business.egov.mv" {
				t.Errorf("Domain = %q", got.Domain)
			}
			if got.RecordType() != entity.PageTypeListing {
				t.Errorf("RecordType = %q", got.RecordType())
			}
		})
	}
}

func TestListingExtractor_DuplicateNamesKept(t *testing.T) {
	e := newTestListingExtractor(t)
	listings, err := e.Extract(readFixture(t, "search_two_cards.html"), testSearchURL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	for _, l := range listings {
		if l.BusinessName != "Example Co" {
			t.Errorf("BusinessName = %q, want Example Co", l.BusinessName)
		}
	}
	if listings[1].DetailURL != nil || listings[1].HasDetailLink {
		t.Errorf("second card should have no detail link, got %s", show(listings[1].DetailURL))
	}
	if listings[1].BusinessCategory != CategoryBusinessActivity {
		t.Errorf("second card category = %q", listings[1].BusinessCategory)
	}
}

func TestListingExtractor_NoCards(t *testing.T) {
	e := newTestListingExtractor(t)
	for _, page := range []string{"", "<html><body><p>No results found</p></body></html>", "<<<not html"} {
		listings, err := e.Extract(page, testSearchURL)
		if err != nil {
			t.Fatalf("Extract(%q): %v", page, err)
		}
		if len(listings) != 0 {
			t.Errorf("Extract(%q) = %d listings, want 0", page, len(listings))
		}
	}
}

func TestListingExtractor_PartialSummaryOnFieldPanic(t *testing.T) {
	e := newTestListingExtractor(t)
	e.fields = []cardField{
		defaultCardFields[0],
		{"type_status", func(*ListingExtractor, *goquery.Selection, *entity.ListingSummary) {
			panic("boom")
		}},
		defaultCardFields[2],
	}

	listings, err := e.Extract(readFixture(t, "search_results.html"), testSearchURL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("got %d listings, want 3", len(listings))
	}
	first := listings[0]
	if first.BusinessType != nil || first.Status != nil {
		t.Errorf("type/status should be absent after panic, got %s/%s", show(first.BusinessType), show(first.Status))
	}
	if first.BusinessCategory != CategorySoleProprietorship {
		t.Errorf("category = %q, fields before the panic should still apply", first.BusinessCategory)
	}
	if !equalPtr(first.BusinessID, strPtr("217847")) {
		t.Errorf("BusinessID = %s, fields after the panic should still apply", show(first.BusinessID))
	}
}

func TestListingExtractor_BlankParagraphTextIgnored(t *testing.T) {
	page := `<html><body>
<div class="feature_home">
  <i class="icon_set_1_icon-29"></i>
  <h3><span>Indented Co</span></h3>
  <p>
    <i class="icon-doc"></i> Private Company</p>
  <p>  </p>
  <p>Registered</p>
</div>
</body></html>`

	listings, err := newTestListingExtractor(t).Extract(page, testSearchURL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	l := listings[0]
	if !equalPtr(l.BusinessType, strPtr("Private Company")) {
		t.Errorf("business_type = %s", show(l.BusinessType))
	}
	if !equalPtr(l.Status, strPtr("Registered")) {
		t.Errorf("status = %s", show(l.Status))
	}
}
