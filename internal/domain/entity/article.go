// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, Source and
// SourceCandidate, along with their validation rules and domain-specific errors.
package entity

import "time"

// ProcessingStatus tracks an article's progress through the enrichment pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Sentiment is the LLM-assigned overall sentiment of an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// MarketImpact is the LLM-assigned expected impact on the logistics market.
type MarketImpact string

const (
	ImpactHigh   MarketImpact = "high"
	ImpactMedium MarketImpact = "medium"
	ImpactLow    MarketImpact = "low"
	ImpactNone   MarketImpact = "none"
)

// Urgency is the LLM-assigned time sensitivity of an article.
type Urgency string

const (
	UrgencyBreaking Urgency = "breaking"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// urgencyRank orders urgency levels for minimum-urgency filtering.
// breaking outranks high so that subscriptions asking for "high or above"
// also receive breaking news.
var urgencyRank = map[Urgency]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyBreaking: 3,
}

// AtLeast reports whether u is at or above the given minimum urgency.
// An unknown urgency never satisfies a minimum.
func (u Urgency) AtLeast(min Urgency) bool {
	ur, ok := urgencyRank[u]
	if !ok {
		return false
	}
	mr, ok := urgencyRank[min]
	if !ok {
		return false
	}
	return ur >= mr
}

// TransportMode is a transport mode discussed in an article.
type TransportMode string

const (
	ModeOcean      TransportMode = "ocean"
	ModeAir        TransportMode = "air"
	ModeRail       TransportMode = "rail"
	ModeRoad       TransportMode = "road"
	ModeMultimodal TransportMode = "multimodal"
)

// KeyMetric is a single numeric data point extracted from an article body.
type KeyMetric struct {
	Metric  string `json:"metric"`
	Value   string `json:"value"`
	Unit    string `json:"unit"`
	Context string `json:"context"`
}

// Entities groups named entities extracted from an article by category.
type Entities struct {
	Companies     []string `json:"companies"`
	Ports         []string `json:"ports"`
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
}

// Enrichment holds the structured analysis produced by the LLM pipeline.
// All fields are empty until the article reaches StatusCompleted.
type Enrichment struct {
	SummaryEN       string          `json:"summary_en"`
	SummaryZH       string          `json:"summary_zh"`
	TransportModes  []TransportMode `json:"transport_modes"`
	PrimaryTopic    string          `json:"primary_topic"`
	SecondaryTopics []string        `json:"secondary_topics"`
	ContentType     string          `json:"content_type"`
	Regions         []string        `json:"regions"`
	Entities        Entities        `json:"entities"`
	Sentiment       Sentiment       `json:"sentiment"`
	MarketImpact    MarketImpact    `json:"market_impact"`
	Urgency         Urgency         `json:"urgency"`
	KeyMetrics      []KeyMetric     `json:"key_metrics"`
}

// Article represents one logical news item in the system.
// Identity is the server-assigned UUID; external identity is the
// canonicalized URL, which is unique across the articles table.
type Article struct {
	ID           string    `json:"id"`
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name,omitempty"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	BodyText     string    `json:"body_text,omitempty"`
	BodyMarkdown string    `json:"body_markdown,omitempty"`
	Language     string    `json:"language,omitempty"`
	PublishedAt  time.Time `json:"published_at,omitzero"`
	FetchedAt    time.Time `json:"fetched_at"`

	// Deduplication fingerprints, present whenever BodyText is non-empty.
	TitleSimHash   uint64   `json:"-"`
	ContentMinHash []uint64 `json:"-"`

	Enrichment Enrichment `json:"enrichment"`
	Embedding  []float32  `json:"-"`

	ProcessingStatus ProcessingStatus `json:"processing_status"`
	LLMProcessed     bool             `json:"llm_processed"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Validate checks the invariants an article must satisfy before persistence.
func (a *Article) Validate() error {
	if a.SourceID == "" {
		return &ValidationError{Field: "source_id", Message: "source_id is required"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if a.BodyText != "" && a.TitleSimHash == 0 && len(a.ContentMinHash) == 0 {
		return &ValidationError{Field: "fingerprints", Message: "fingerprints must be computed for articles with body text"}
	}
	return nil
}

// EmbeddingDimensions is the fixed output width of the embedding model.
const EmbeddingDimensions = 1024

// ValidateCompleted checks the invariants of a completed article:
// non-empty sentiment and a full-width embedding vector.
func (a *Article) ValidateCompleted() error {
	if a.Enrichment.Sentiment == "" {
		return &ValidationError{Field: "sentiment", Message: "completed article must carry a sentiment"}
	}
	if len(a.Embedding) != EmbeddingDimensions {
		return &ValidationError{Field: "embedding", Message: "completed article must carry a 1024-dimension embedding"}
	}
	return nil
}
