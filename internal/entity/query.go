package entity

// QueryContext is the per-query context bag propagated unchanged from a
// search task to every detail task derived from it.
type QueryContext struct {
	ExactMatchOnly bool `json:"exact_match_only"`
}

// SearchQuery is one user-supplied search string plus its context.
type SearchQuery struct {
	Text    string       `json:"text"`
	Context QueryContext `json:"context"`
}
