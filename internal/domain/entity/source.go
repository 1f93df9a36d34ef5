package entity

import "time"

// SourceKind selects which adapter fetches a source.
type SourceKind string

const (
	KindFeed      SourceKind = "feed"
	KindAPI       SourceKind = "api"
	KindScraper   SourceKind = "scraper"
	KindUniversal SourceKind = "universal"
)

// ValidKind reports whether k is a known source kind.
func ValidKind(k SourceKind) bool {
	switch k {
	case KindFeed, KindAPI, KindScraper, KindUniversal:
		return true
	}
	return false
}

// HealthStatus is the scheduler's rolling assessment of a source.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthFailing  HealthStatus = "failing"
)

// APIAuthType selects how the API adapter authenticates requests.
type APIAuthType string

const (
	AuthNone         APIAuthType = "none"
	AuthAPIKeyHeader APIAuthType = "api_key_header"
	AuthAPIKeyQuery  APIAuthType = "api_key_query"
	AuthBearer       APIAuthType = "bearer"
)

// PaginationType selects how the API adapter walks result pages.
type PaginationType string

const (
	PageNone   PaginationType = "none"
	PageNumber PaginationType = "page_number"
	PageOffset PaginationType = "offset"
	PageCursor PaginationType = "cursor"
)

// APIFieldMapping maps RawArticle fields to dot-separated paths into an
// API response item (e.g. "attributes.headline").
type APIFieldMapping struct {
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	BodyText    string `yaml:"body_text" json:"body_text"`
	BodyHTML    string `yaml:"body_html" json:"body_html"`
	PublishedAt string `yaml:"published_at" json:"published_at"`
	Author      string `yaml:"author" json:"author"`
	Language    string `yaml:"language" json:"language"`
}

// APIConfig drives the generic API adapter.
// AuthValue starting with "$" is resolved from the environment.
type APIConfig struct {
	AuthType        APIAuthType     `yaml:"auth_type" json:"auth_type"`
	AuthKey         string          `yaml:"auth_key" json:"auth_key"`
	AuthValue       string          `yaml:"auth_value" json:"auth_value"`
	PaginationType  PaginationType  `yaml:"pagination_type" json:"pagination_type"`
	PaginationParam string          `yaml:"pagination_param" json:"pagination_param"`
	PageSizeParam   string          `yaml:"page_size_param" json:"page_size_param"`
	PageSize        int             `yaml:"page_size" json:"page_size"`
	MaxPages        int             `yaml:"max_pages" json:"max_pages"`
	ItemsPath       string          `yaml:"items_path" json:"items_path"`
	Mapping         APIFieldMapping `yaml:"mapping" json:"mapping"`
	FetchFullText   bool            `yaml:"fetch_full_text" json:"fetch_full_text"`
}

// ScraperConfig drives the CSS-selector scraper adapter.
type ScraperConfig struct {
	ListSelector  string `yaml:"list_selector" json:"list_selector"`
	TitleSelector string `yaml:"title_selector" json:"title_selector"`
	BodySelector  string `yaml:"body_selector" json:"body_selector"`
	DateSelector  string `yaml:"date_selector" json:"date_selector"`
	DateFormat    string `yaml:"date_format" json:"date_format"`
	BaseURL       string `yaml:"base_url" json:"base_url"`
	MaxArticles   int    `yaml:"max_articles" json:"max_articles"`
}

// Source is a configured or discovered content origin.
// Sources are created by config seeding or discovery promotion and are
// never implicitly deleted; health is re-evaluated on each fetch cycle.
type Source struct {
	SourceID             string         `json:"source_id" yaml:"source_id"`
	Name                 string         `json:"name" yaml:"name"`
	Kind                 SourceKind     `json:"kind" yaml:"kind"`
	URL                  string         `json:"url" yaml:"url"`
	Language             string         `json:"language,omitempty" yaml:"language"`
	Categories           []string       `json:"categories,omitempty" yaml:"categories"`
	FetchIntervalMinutes int            `json:"fetch_interval_minutes" yaml:"fetch_interval_minutes"`
	Priority             int            `json:"priority" yaml:"priority"`
	Enabled              bool           `json:"enabled" yaml:"enabled"`
	APIConfig            *APIConfig     `json:"api_config,omitempty" yaml:"api_config"`
	ScraperConfig        *ScraperConfig `json:"scraper_config,omitempty" yaml:"scraper_config"`
	LastFetchedAt        time.Time      `json:"last_fetched_at,omitzero" yaml:"-"`
	HealthStatus         HealthStatus   `json:"health_status" yaml:"-"`
	Notes                string         `json:"notes,omitempty" yaml:"notes"`
	CreatedAt            time.Time      `json:"created_at,omitzero" yaml:"-"`
}

// Validate checks that a source record is complete for its kind.
func (s *Source) Validate() error {
	if s.SourceID == "" {
		return &ValidationError{Field: "source_id", Message: "source_id is required"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !ValidKind(s.Kind) {
		return &ValidationError{Field: "kind", Message: "kind must be one of feed, api, scraper, universal"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if s.FetchIntervalMinutes <= 0 {
		return &ValidationError{Field: "fetch_interval_minutes", Message: "fetch interval must be positive"}
	}
	if s.Kind == KindAPI && s.APIConfig == nil {
		return &ValidationError{Field: "api_config", Message: "api sources require an api_config"}
	}
	if s.Kind == KindScraper && (s.ScraperConfig == nil || s.ScraperConfig.ListSelector == "") {
		return &ValidationError{Field: "scraper_config", Message: "scraper sources require a list_selector"}
	}
	return nil
}
