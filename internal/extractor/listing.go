package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/registry-crawler/internal/entity"
	"github.com/user/registry-crawler/pkg/utils"
	"go.uber.org/zap"
)

const (
	cardSelector        = ".feature_home"
	cardNameSelector    = "h3 span"
	cardLinkSelector    = "a.btn_1"
	searchQuerySelector = "#search-query"
)

// cardField fills one part of a listing summary from its card. A panic in
// a field leaves the summary partial; it does not drop the card.
type cardField struct {
	name  string
	apply func(e *ListingExtractor, card *goquery.Selection, s *entity.ListingSummary)
}

var defaultCardFields = []cardField{
	{"category", extractCategory},
	{"type_status", extractTypeAndStatus},
	{"detail_link", extractDetailLink},
}

// ListingExtractor parses search results pages into listing summaries.
type ListingExtractor struct {
	baseURL *url.URL
	fields  []cardField
	logger  *zap.Logger
}

// NewListingExtractor resolves detail links against baseURL.
func NewListingExtractor(baseURL string, logger *zap.Logger) (*ListingExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return &ListingExtractor{
		baseURL: base,
		fields:  defaultCardFields,
		logger:  logger.Named("listing_extractor"),
	}, nil
}

// Extract returns one summary per business card in document order. Cards
// without a name are skipped; a card that fails is logged and skipped
// without affecting its siblings. Summaries are not deduplicated.
func (e *ListingExtractor) Extract(htmlContent, sourceURL string) ([]entity.ListingSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	searchQuery := firstNonBlank(OwnTexts(doc.Find(searchQuerySelector)))
	if searchQuery != nil {
		searchQuery = ParseSearchQuery(*searchQuery)
	}
	domain := utils.Hostname(sourceURL)

	listings := []entity.ListingSummary{}
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		summary, err := e.extractCard(card, sourceURL, domain, searchQuery)
		if err != nil {
			e.logger.Warn("error extracting business card",
				zap.String("source_url", sourceURL), zap.Int("card", i), zap.Error(err))
			return
		}
		if summary != nil {
			listings = append(listings, *summary)
		}
	})
	return listings, nil
}

func (e *ListingExtractor) extractCard(card *goquery.Selection, sourceURL, domain string, searchQuery *string) (summary *entity.ListingSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary, err = nil, fmt.Errorf("card extraction panicked: %v", r)
		}
	}()

	name := FirstText(card, cardNameSelector)
	if name == nil {
		return nil, nil
	}

	summary = &entity.ListingSummary{
		BusinessName:     *name,
		BusinessCategory: CategoryUnknown,
		SearchQuery:      searchQuery,
		SourceURL:        sourceURL,
		Domain:           domain,
	}
	for _, f := range e.fields {
		e.applyField(f, card, summary)
	}
	return summary, nil
}

func (e *ListingExtractor) applyField(f cardField, card *goquery.Selection, s *entity.ListingSummary) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("partial business card",
				zap.String("business_name", s.BusinessName), zap.String("field", f.name), zap.Any("panic", r))
		}
	}()
	f.apply(e, card, s)
}

func extractCategory(_ *ListingExtractor, card *goquery.Selection, s *entity.ListingSummary) {
	iconClass, _ := card.Find("i").First().Attr("class")
	s.IconClass = iconClass
	s.BusinessCategory = MapIconToCategory(iconClass)
}

// Type and status are the first and second non-blank paragraph texts, so
// indentation around inline icons does not shift them.
func extractTypeAndStatus(_ *ListingExtractor, card *goquery.Selection, s *entity.ListingSummary) {
	paragraphs := nonBlank(OwnTexts(card.Find("p")))
	if len(paragraphs) > 0 {
		s.BusinessType = &paragraphs[0]
	}
	if len(paragraphs) > 1 {
		s.Status = &paragraphs[1]
	}
}

func extractDetailLink(e *ListingExtractor, card *goquery.Selection, s *entity.ListingSummary) {
	link := card.Find(cardLinkSelector).First()
	s.HasDetailLink = link.Length() > 0
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return
	}
	href = strings.TrimSpace(href)
	s.DetailPath = &href
	s.BusinessID = ExtractBusinessID(href)
	if abs, err := utils.ToAbsoluteURL(e.baseURL, href); err == nil {
		s.DetailURL = &abs
	}
}
