package entity

import "time"

// PageTypeListing tags listing summaries when they are persisted.
const PageTypeListing = "business_listing"

// ListingSummary is one business card found on a search results page.
type ListingSummary struct {
	BusinessName     string     `json:"business_name"`
	BusinessType     *string    `json:"business_type"`
	Status           *string    `json:"status"`
	BusinessCategory string     `json:"business_category"`
	BusinessID       *string    `json:"business_id"`
	DetailURL        *string    `json:"detail_url"`
	DetailPath       *string    `json:"detail_path"`
	SearchQuery      *string    `json:"search_query"`
	SourceURL        string     `json:"source_url"`
	IconClass        string     `json:"icon_class"`
	HasDetailLink    bool       `json:"has_detail_link"`
	Domain           string     `json:"domain"`
	ExtractedAt      *time.Time `json:"extracted_at"`
}

func (l *ListingSummary) RecordType() string { return PageTypeListing }

func (l *ListingSummary) Key() string {
	if l.BusinessID != nil {
		return *l.BusinessID
	}
	return l.BusinessName
}
