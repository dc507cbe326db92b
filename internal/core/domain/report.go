package domain

type Severity string

const (
	SeverityClean    Severity = "clean"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

type ReportStatus string

const (
	StatusConfirmed    ReportStatus = "confirmed"
	StatusInconclusive ReportStatus = "inconclusive"
)

// Degradation reasons reported when evidence gathering was incomplete.
const (
	ReasonNoQueries    = "no_queries"
	ReasonSearchFailed = "search_failed"
	ReasonFetchFailed  = "fetch_failed"
	ReasonScoreFailed  = "score_failed"
	ReasonWebSkipped   = "web_skipped"
)

type Coverage struct {
	ArchiveEntries int  `json:"archive_entries"`
	ArchiveScored  int  `json:"archive_scored"`
	Queries        int  `json:"queries"`
	SearchCalls    int  `json:"search_calls"`
	SearchFailures int  `json:"search_failures"`
	URLs           int  `json:"urls"`
	PagesFetched   int  `json:"pages_fetched"`
	FetchFailures  int  `json:"fetch_failures"`
	ScoreFailures  int  `json:"score_failures"`
	WebSkipped     bool `json:"web_skipped,omitempty"`
}

// DegradationReasons lists why the evidence set may be incomplete.
func (c Coverage) DegradationReasons() []string {
	var reasons []string
	if c.WebSkipped {
		reasons = append(reasons, ReasonWebSkipped)
	} else if c.Queries == 0 {
		reasons = append(reasons, ReasonNoQueries)
	}
	if c.SearchFailures > 0 {
		reasons = append(reasons, ReasonSearchFailed)
	}
	if c.FetchFailures > 0 {
		reasons = append(reasons, ReasonFetchFailed)
	}
	if c.ScoreFailures > 0 {
		reasons = append(reasons, ReasonScoreFailed)
	}
	return reasons
}

type AnalysisReport struct {
	Matches      []ScoredMatch `json:"matches"`
	TotalMatches int           `json:"total_matches"`
	MaxScore     float64       `json:"max_score"`
	Severity     Severity      `json:"severity"`
	Status       ReportStatus  `json:"status"`
	Degraded     []string      `json:"degraded,omitempty"`
	Coverage     Coverage      `json:"coverage"`
}
