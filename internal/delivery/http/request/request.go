package request

// SubmitCrawlRequest starts a crawl run. Queries may also be given as a
// single comma-separated string in Query.
type SubmitCrawlRequest struct {
	Queries     []string `json:"queries"`
	Query       string   `json:"query"`
	ExactMatch  bool     `json:"exact_match"`
	MaxRequests int      `json:"max_requests"`
}
