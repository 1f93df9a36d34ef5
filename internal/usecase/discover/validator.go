package discover

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/fingerprint"
	"logistics-news/internal/infra/adapter"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/normalize"
)

const (
	reachabilityTimeout = 20 * time.Second
	maxSamples          = 5
	previewChars        = 280
)

// Validation is the outcome of running the validator against one URL.
// Probe returns it directly; batch validation copies it onto the
// candidate record.
type Validation struct {
	URL       string                   `json:"url"`
	Name      string                   `json:"name,omitempty"`
	FeedURL   string                   `json:"feed_url,omitempty"`
	Kind      entity.SourceKind        `json:"kind"`
	Language  string                   `json:"language,omitempty"`
	Quality   int                      `json:"quality_score"`
	Relevance int                      `json:"relevance_score"`
	Combined  float64                  `json:"combined_score"`
	Samples   []entity.SamplePreview   `json:"sample_articles,omitempty"`
	Details   entity.ValidationDetails `json:"validation_details"`
}

// Validator checks whether a candidate site is reachable, whether it
// exposes a feed, and how well its trial articles score.
type Validator struct {
	extractor *fetcher.Extractor
	factory   *adapter.Factory
}

// NewValidator creates a Validator sharing the collection stack's
// extractor and adapters.
func NewValidator(extractor *fetcher.Extractor, factory *adapter.Factory) *Validator {
	return &Validator{extractor: extractor, factory: factory}
}

// Validate runs the full check against one site URL. A non-nil result
// is returned for every reachable site, even when the trial fetch
// fails; only unreachable sites yield an error.
func (v *Validator) Validate(ctx context.Context, siteURL string) (*Validation, error) {
	out := &Validation{URL: siteURL, Kind: entity.KindUniversal}

	reachCtx, cancel := context.WithTimeout(ctx, reachabilityTimeout)
	pageHTML, err := v.extractor.FetchHTML(reachCtx, siteURL)
	cancel()
	if err != nil {
		return nil, err
	}
	out.Details.Reachable = true
	out.Details.FinalURL = siteURL
	out.Name = pageTitle(pageHTML)
	out.Details.DetectedName = out.Name

	if feedURL := v.factory.Universal().DiscoverFeed(ctx, siteURL, pageHTML); feedURL != "" {
		out.FeedURL = feedURL
		out.Details.FeedURL = feedURL
		out.Kind = entity.KindFeed
	}

	samples, fetchErr := v.trialFetch(ctx, out)
	if fetchErr != nil {
		out.Details.FetchError = fetchErr.Error()
	}
	v.score(out, samples)
	return out, nil
}

// trialFetch pulls up to maxSamples articles through the adapter the
// promoted source would use.
func (v *Validator) trialFetch(ctx context.Context, val *Validation) ([]adapter.RawArticle, error) {
	trial := &entity.Source{
		SourceID: "candidate-probe",
		Name:     val.Name,
		Kind:     val.Kind,
		URL:      val.URL,
	}
	if val.Kind == entity.KindFeed {
		trial.URL = val.FeedURL
	}

	a, err := v.factory.ForSource(trial)
	if err != nil {
		return nil, err
	}
	articles, err := a.Fetch(ctx, trial)
	if len(articles) > maxSamples {
		articles = articles[:maxSamples]
	}
	if len(articles) > 0 {
		// Partial results still score; the error is recorded alongside.
		return articles, err
	}
	return nil, err
}

func (v *Validator) score(val *Validation, samples []adapter.RawArticle) {
	var (
		stats sampleStats
		text  strings.Builder
	)
	stats.Fetched = len(samples)
	val.Details.ArticlesFetched = len(samples)

	for _, raw := range samples {
		title := normalize.Text(raw.Title)
		body := raw.RawText
		if body == "" && raw.RawHTML != "" {
			body = normalize.Text(raw.RawHTML)
		}

		if title != "" {
			stats.WithTitle++
		}
		if len(body) >= minSampleBodyChars {
			stats.WithBody++
		}
		if !raw.PublishedAt.IsZero() {
			stats.WithDate++
		}
		if raw.URL != "" && fingerprint.CanonicalURL(raw.URL) == raw.URL {
			stats.Canonical++
		}

		text.WriteString(title)
		text.WriteString("\n")
		text.WriteString(body)
		text.WriteString("\n")

		preview := entity.SamplePreview{Title: title, URL: raw.URL, BodyPreview: truncate(body, previewChars)}
		if !raw.PublishedAt.IsZero() {
			preview.PublishedAt = raw.PublishedAt.UTC().Format(time.RFC3339)
		}
		val.Samples = append(val.Samples, preview)
	}

	val.Details.WithTitle = stats.WithTitle
	val.Details.WithBody = stats.WithBody
	val.Details.WithDate = stats.WithDate

	val.Quality = qualityScore(stats)
	val.Relevance = relevanceScore(text.String())
	val.Combined = combinedScore(val.Quality, val.Relevance)
	if val.Language == "" {
		val.Language = normalize.DetectLanguage(text.String())
	}
}

func pageTitle(pageHTML []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	return normalize.Text(doc.Find("title").First().Text())
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
