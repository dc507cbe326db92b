package domain

type Origin string

const (
	OriginLocal Origin = "local"
	OriginWeb   Origin = "web"
)

// Query is a search probe derived from the submission text.
type Query string

type SearchResult struct {
	URL string `json:"url"`
}

// EvidenceItem is one candidate source compared against the submission.
type EvidenceItem struct {
	Source  string `json:"source"`
	Content string `json:"-"`
	Origin  Origin `json:"origin"`
}

// FetchResult is the outcome of a single page fetch. Err is set when no
// usable content could be obtained; Text is empty in that case.
type FetchResult struct {
	URL  string
	Text string
	Err  error
}

func (r FetchResult) OK() bool {
	return r.Err == nil && r.Text != ""
}

// CollectionStats describes how much of the web evidence stage succeeded.
type CollectionStats struct {
	Queries        int `json:"queries"`
	SearchCalls    int `json:"search_calls"`
	SearchFailures int `json:"search_failures"`
	RawResults     int `json:"raw_results"`
	URLs           int `json:"urls"`
	PagesFetched   int `json:"pages_fetched"`
	FetchFailures  int `json:"fetch_failures"`
}

type WebEvidence struct {
	Items []EvidenceItem
	Stats CollectionStats
}

type ScoredMatch struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Origin Origin  `json:"origin"`
}
