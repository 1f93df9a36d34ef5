package entity

import "time"

// CandidateStatus is the lifecycle state of a discovered source candidate.
type CandidateStatus string

const (
	CandidateDiscovered CandidateStatus = "discovered"
	CandidateValidating CandidateStatus = "validating"
	CandidateValidated  CandidateStatus = "validated"
	CandidateApproved   CandidateStatus = "approved"
	CandidateRejected   CandidateStatus = "rejected"
)

// SamplePreview is a trimmed article preview captured during validation.
type SamplePreview struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	BodyPreview string `json:"body_preview"`
	PublishedAt string `json:"published_at,omitempty"`
}

// ValidationDetails records the observations made while validating a candidate.
type ValidationDetails struct {
	Reachable       bool   `json:"reachable"`
	FinalURL        string `json:"final_url,omitempty"`
	DetectedName    string `json:"detected_name,omitempty"`
	FeedURL         string `json:"feed_url,omitempty"`
	ArticlesFetched int    `json:"articles_fetched"`
	FetchError      string `json:"fetch_error,omitempty"`
	WithTitle       int    `json:"with_title"`
	WithBody        int    `json:"with_body"`
	WithDate        int    `json:"with_date"`
}

// SourceCandidate is a not-yet-approved potential source produced by the
// discovery loop. Lifecycle: discovered -> validating -> validated ->
// approved (creates a Source) or rejected.
type SourceCandidate struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Name           string            `json:"name,omitempty"`
	FeedURL        string            `json:"feed_url,omitempty"`
	Kind           SourceKind        `json:"kind,omitempty"`
	Language       string            `json:"language,omitempty"`
	Categories     []string          `json:"categories,omitempty"`
	DiscoveredVia  string            `json:"discovered_via"`
	DiscoveryQuery string            `json:"discovery_query,omitempty"`
	Status         CandidateStatus   `json:"status"`
	QualityScore   int               `json:"quality_score"`
	RelevanceScore int               `json:"relevance_score"`
	CombinedScore  int               `json:"combined_score"`
	Samples        []SamplePreview   `json:"sample_articles,omitempty"`
	Details        ValidationDetails `json:"validation_details"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	AutoApproved   bool              `json:"auto_approved"`
	CreatedAt      time.Time         `json:"created_at,omitzero"`
	ValidatedAt    time.Time         `json:"validated_at,omitzero"`
}
