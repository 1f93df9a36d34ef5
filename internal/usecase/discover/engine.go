// Package discover finds new candidate sources through web search and
// seed crawls, validates them against quality and relevance scoring,
// and promotes the strong ones into the live collection set.
package discover

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/fingerprint"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/infra/search"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/repository"
)

const (
	// AutoApproveThreshold promotes a validated candidate without
	// operator review.
	AutoApproveThreshold = 75.0

	DefaultValidateBatch = 10
	ProbeTimeout         = 30 * time.Second

	resultsPerQuery  = 10
	validateTimeout  = 60 * time.Second
	promotedInterval = 60
	promotedPriority = 5
)

// Config carries the scan inputs. Zero-value fields fall back to the
// package defaults.
type Config struct {
	Queries       []string
	Seeds         []string
	Blocklist     []string
	ValidateBatch int
}

// Engine runs the discovery loop.
type Engine struct {
	candidates repository.CandidateRepository
	sources    repository.SourceRepository
	engines    []search.Engine
	extractor  *fetcher.Extractor
	validator  *Validator

	queries   []string
	seeds     []string
	blocklist []string
	batch     int
}

// New creates an Engine. Search engines are tried in order; a nil
// entry is skipped so the optional custom-search client can be absent.
func New(
	candidates repository.CandidateRepository,
	sources repository.SourceRepository,
	engines []search.Engine,
	extractor *fetcher.Extractor,
	validator *Validator,
	cfg Config,
) *Engine {
	e := &Engine{
		candidates: candidates,
		sources:    sources,
		extractor:  extractor,
		validator:  validator,
		queries:    cfg.Queries,
		seeds:      cfg.Seeds,
		blocklist:  cfg.Blocklist,
		batch:      cfg.ValidateBatch,
	}
	for _, eng := range engines {
		if eng != nil {
			e.engines = append(e.engines, eng)
		}
	}
	if len(e.queries) == 0 {
		e.queries = DefaultQueries
	}
	if len(e.seeds) == 0 {
		e.seeds = DefaultSeeds
	}
	if len(e.blocklist) == 0 {
		e.blocklist = DefaultBlocklist
	}
	if e.batch <= 0 {
		e.batch = DefaultValidateBatch
	}
	return e
}

// found is one scan hit before domain dedup.
type found struct {
	url   string
	via   string
	query string
}

// Scan runs all producers, deduplicates by domain, and persists new
// candidates in discovered state.
func (e *Engine) Scan(ctx context.Context) {
	metrics.RecordDiscoveryRun("scan")
	started := time.Now()

	var hits []found
	for _, eng := range e.engines {
		for _, query := range e.queries {
			results, err := eng.Search(ctx, query, resultsPerQuery)
			if err != nil {
				slog.Warn("discovery search failed",
					slog.String("engine", eng.Name()),
					slog.String("query", query),
					slog.String("error", err.Error()))
				continue
			}
			for _, u := range results {
				hits = append(hits, found{url: u, via: "search:" + eng.Name(), query: query})
			}
			if ctx.Err() != nil {
				return
			}
		}
	}

	for _, seed := range e.seeds {
		links, err := e.crawlSeed(ctx, seed)
		if err != nil {
			slog.Warn("discovery seed crawl failed",
				slog.String("seed", seed),
				slog.String("error", err.Error()))
			continue
		}
		for _, u := range links {
			hits = append(hits, found{url: u, via: "seed_crawl", query: seed})
		}
		if ctx.Err() != nil {
			return
		}
	}

	inserted := e.persistHits(ctx, hits)
	slog.Info("discovery scan finished",
		slog.Int("hits", len(hits)),
		slog.Int("new_candidates", inserted),
		slog.Duration("duration", time.Since(started)))
}

// crawlSeed extracts cross-host outbound links from one hub page.
func (e *Engine) crawlSeed(ctx context.Context, seedURL string) ([]string, error) {
	pageHTML, err := e.extractor.FetchHTML(ctx, seedURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		if u.Host == "" || u.Host == base.Host {
			return
		}
		site := u.Scheme + "://" + u.Host
		if seen[site] {
			return
		}
		seen[site] = true
		links = append(links, site)
	})
	return links, nil
}

// persistHits domain-dedups scan output, applies the blocklist, and
// inserts new candidates. Returns the number actually inserted.
func (e *Engine) persistHits(ctx context.Context, hits []found) int {
	seen := make(map[string]bool)
	inserted := 0
	for _, hit := range hits {
		domain := fingerprint.Domain(hit.url)
		if domain == "" || seen[domain] || e.blocked(domain) {
			continue
		}
		seen[domain] = true

		u, err := url.Parse(hit.url)
		if err != nil || u.Host == "" {
			continue
		}
		candidate := &entity.SourceCandidate{
			ID:             uuid.NewString(),
			URL:            u.Scheme + "://" + u.Host,
			DiscoveredVia:  hit.via,
			DiscoveryQuery: hit.query,
			Status:         entity.CandidateDiscovered,
			CreatedAt:      time.Now().UTC(),
		}
		ok, err := e.candidates.Insert(ctx, candidate)
		if err != nil {
			slog.Error("candidate insert failed",
				slog.String("domain", domain),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			inserted++
			metrics.RecordCandidateStatus(string(entity.CandidateDiscovered))
		}
	}
	return inserted
}

func (e *Engine) blocked(domain string) bool {
	for _, b := range e.blocklist {
		if domain == b || strings.HasSuffix(domain, "."+b) {
			return true
		}
	}
	return false
}

// ValidateBatch validates up to the configured number of discovered
// candidates, oldest first.
func (e *Engine) ValidateBatch(ctx context.Context) {
	metrics.RecordDiscoveryRun("validate")

	batch, err := e.candidates.ListDiscovered(ctx, e.batch)
	if err != nil {
		slog.Error("candidate listing failed", slog.String("error", err.Error()))
		return
	}
	for _, candidate := range batch {
		if ctx.Err() != nil {
			return
		}
		e.validateCandidate(ctx, candidate)
	}
}

func (e *Engine) validateCandidate(ctx context.Context, candidate *entity.SourceCandidate) {
	candidate.Status = entity.CandidateValidating
	if err := e.candidates.Update(ctx, candidate); err != nil {
		slog.Error("candidate update failed",
			slog.String("candidate_id", candidate.ID),
			slog.String("error", err.Error()))
		return
	}
	metrics.RecordCandidateStatus(string(entity.CandidateValidating))

	valCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	result, err := e.validator.Validate(valCtx, candidate.URL)
	cancel()
	if err != nil {
		// Unreachable sites fail validation outright.
		candidate.Status = entity.CandidateRejected
		candidate.ErrorMessage = err.Error()
		candidate.ValidatedAt = time.Now().UTC()
		if uerr := e.candidates.Update(ctx, candidate); uerr != nil {
			slog.Error("candidate update failed",
				slog.String("candidate_id", candidate.ID),
				slog.String("error", uerr.Error()))
			return
		}
		metrics.RecordCandidateStatus(string(entity.CandidateRejected))
		slog.Info("candidate unreachable, rejected",
			slog.String("candidate_id", candidate.ID),
			slog.String("url", candidate.URL),
			slog.String("error", err.Error()))
		return
	}

	applyValidation(candidate, result)
	candidate.Status = entity.CandidateValidated
	candidate.ValidatedAt = time.Now().UTC()

	autoApprove := result.Combined >= AutoApproveThreshold
	if autoApprove {
		source := e.buildSource(candidate)
		if err := e.sources.Create(ctx, source); err != nil {
			slog.Error("auto-approve source create failed",
				slog.String("candidate_id", candidate.ID),
				slog.String("source_id", source.SourceID),
				slog.String("error", err.Error()))
			autoApprove = false
		} else {
			candidate.Status = entity.CandidateApproved
			candidate.AutoApproved = true
			slog.Info("candidate auto-approved",
				slog.String("candidate_id", candidate.ID),
				slog.String("source_id", source.SourceID),
				slog.Int("quality", candidate.QualityScore),
				slog.Int("relevance", candidate.RelevanceScore),
				slog.Int("combined", candidate.CombinedScore))
		}
	}

	if err := e.candidates.Update(ctx, candidate); err != nil {
		slog.Error("candidate update failed",
			slog.String("candidate_id", candidate.ID),
			slog.String("error", err.Error()))
		return
	}
	metrics.RecordCandidateStatus(string(candidate.Status))
}

// applyValidation copies a validator result onto the candidate record.
func applyValidation(candidate *entity.SourceCandidate, result *Validation) {
	candidate.Name = result.Name
	candidate.FeedURL = result.FeedURL
	candidate.Kind = result.Kind
	candidate.Language = result.Language
	candidate.QualityScore = result.Quality
	candidate.RelevanceScore = result.Relevance
	candidate.CombinedScore = int(result.Combined + 0.5)
	candidate.Samples = result.Samples
	candidate.Details = result.Details
}

// buildSource materializes the Source a candidate promotes into.
func (e *Engine) buildSource(candidate *entity.SourceCandidate) *entity.Source {
	name := candidate.Name
	domain := fingerprint.Domain(candidate.URL)
	if name == "" {
		name = domain
	}
	sourceURL := candidate.URL
	if candidate.Kind == entity.KindFeed && candidate.FeedURL != "" {
		sourceURL = candidate.FeedURL
	}
	return &entity.Source{
		SourceID:             slugify(domain) + "-" + uuid.NewString()[:8],
		Name:                 name,
		Kind:                 candidate.Kind,
		URL:                  sourceURL,
		Language:             candidate.Language,
		Categories:           candidate.Categories,
		FetchIntervalMinutes: promotedInterval,
		Priority:             promotedPriority,
		Enabled:              true,
		Notes:                "discovered via " + candidate.DiscoveredVia,
	}
}

// Probe runs the validator against one URL synchronously, without
// touching the candidate store.
func (e *Engine) Probe(ctx context.Context, siteURL string) (*Validation, error) {
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	return e.validator.Validate(probeCtx, siteURL)
}

// Approve is the operator action: create the Source and mark the
// candidate approved, regardless of score.
func (e *Engine) Approve(ctx context.Context, candidateID string) (*entity.Source, error) {
	candidate, err := e.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	switch candidate.Status {
	case entity.CandidateApproved:
		return nil, fmt.Errorf("candidate %s is already approved", candidateID)
	case entity.CandidateValidated, entity.CandidateRejected, entity.CandidateDiscovered, entity.CandidateValidating:
	}
	if candidate.Kind == "" {
		candidate.Kind = entity.KindUniversal
	}

	source := e.buildSource(candidate)
	if err := e.sources.Create(ctx, source); err != nil {
		return nil, err
	}
	candidate.Status = entity.CandidateApproved
	candidate.AutoApproved = false
	if err := e.candidates.Update(ctx, candidate); err != nil {
		return nil, err
	}
	metrics.RecordCandidateStatus(string(entity.CandidateApproved))
	return source, nil
}

// Reject is the operator action closing out a candidate.
func (e *Engine) Reject(ctx context.Context, candidateID string) error {
	candidate, err := e.candidates.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	candidate.Status = entity.CandidateRejected
	if err := e.candidates.Update(ctx, candidate); err != nil {
		return err
	}
	metrics.RecordCandidateStatus(string(entity.CandidateRejected))
	return nil
}

// slugify lowercases and folds a domain into an id-safe slug.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
