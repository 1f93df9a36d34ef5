// Package collect implements one scheduled fetch cycle for a source:
// adapter fetch, normalization, fingerprinting, deduplication, insert,
// fetch logging, and source health evaluation.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"logistics-news/internal/dedup"
	"logistics-news/internal/domain/entity"
	"logistics-news/internal/fingerprint"
	"logistics-news/internal/infra/adapter"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/normalize"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/repository"

	"github.com/google/uuid"
)

const (
	// DefaultFetchDeadline bounds one adapter invocation.
	DefaultFetchDeadline = 60 * time.Second

	// minBodyChars triggers a full-text extraction pass when the adapter
	// only delivered a teaser or summary.
	minBodyChars = 500
)

// Result summarizes one completed fetch cycle.
type Result struct {
	Found         int
	New           int
	Dedup         int
	NewArticleIDs []string
	Status        entity.FetchStatus
}

// Collector runs fetch cycles. Safe for concurrent use across sources;
// the scheduler guarantees at most one concurrent cycle per source.
type Collector struct {
	sources   repository.SourceRepository
	articles  repository.ArticleRepository
	fetchLogs repository.FetchLogRepository
	factory   *adapter.Factory
	extractor *fetcher.Extractor
	deduper   *dedup.Deduper

	fetchDeadline time.Duration
	// enqueue hands a newly inserted article id to the enrichment
	// pipeline. May be nil in tests.
	enqueue func(articleID string)
}

// New creates a Collector.
func New(
	sources repository.SourceRepository,
	articles repository.ArticleRepository,
	fetchLogs repository.FetchLogRepository,
	factory *adapter.Factory,
	extractor *fetcher.Extractor,
	deduper *dedup.Deduper,
	enqueue func(articleID string),
) *Collector {
	return &Collector{
		sources:       sources,
		articles:      articles,
		fetchLogs:     fetchLogs,
		factory:       factory,
		extractor:     extractor,
		deduper:       deduper,
		fetchDeadline: DefaultFetchDeadline,
		enqueue:       enqueue,
	}
}

// CollectSource runs one fetch cycle for a source. Errors from the
// adapter are recorded in the fetch log and reflected in source health;
// they are returned for logging but the cycle itself has completed.
func (c *Collector) CollectSource(ctx context.Context, source *entity.Source) (*Result, error) {
	started := time.Now()

	log := &entity.FetchLog{
		SourceID:  source.SourceID,
		StartedAt: started,
	}

	raws, fetchErr := c.fetch(ctx, source)
	res := &Result{Found: len(raws)}

	for _, raw := range raws {
		id, dup, err := c.ingest(ctx, source, raw)
		switch {
		case err != nil:
			slog.Warn("article ingest failed",
				slog.String("source_id", source.SourceID),
				slog.String("url", raw.URL),
				slog.String("error", err.Error()))
			if log.ErrorMessage == "" {
				log.ErrorMessage = err.Error()
			}
		case dup:
			res.Dedup++
		default:
			res.New++
			res.NewArticleIDs = append(res.NewArticleIDs, id)
		}
	}

	res.Status = cycleStatus(fetchErr, log.ErrorMessage, len(raws))
	if fetchErr != nil && log.ErrorMessage == "" {
		log.ErrorMessage = fetchErr.Error()
	}

	log.Status = res.Status
	log.ArticlesFound = res.Found
	log.ArticlesNew = res.New
	log.ArticlesDedup = res.Dedup
	log.CompletedAt = time.Now()
	log.DurationMS = time.Since(started).Milliseconds()

	if err := c.fetchLogs.Insert(ctx, log); err != nil {
		slog.Error("fetch log insert failed",
			slog.String("source_id", source.SourceID),
			slog.String("error", err.Error()))
	}

	metrics.RecordFetch(source.SourceID, string(res.Status), time.Since(started))
	metrics.RecordIngested(source.SourceID, res.New)

	if err := c.sources.TouchFetchedAt(ctx, source.SourceID, started); err != nil {
		slog.Error("source timestamp update failed",
			slog.String("source_id", source.SourceID),
			slog.String("error", err.Error()))
	}
	c.evaluateHealth(ctx, source)

	if c.enqueue != nil {
		for _, id := range res.NewArticleIDs {
			c.enqueue(id)
		}
	}

	if fetchErr != nil {
		return res, fmt.Errorf("source %s fetch: %w", source.SourceID, fetchErr)
	}
	return res, nil
}

func (c *Collector) fetch(ctx context.Context, source *entity.Source) ([]adapter.RawArticle, error) {
	ad, err := c.factory.ForSource(source)
	if err != nil {
		return nil, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchDeadline)
	defer cancel()
	return ad.Fetch(fetchCtx, source)
}

// ingest normalizes, fingerprints and dedup-checks one raw article,
// inserting it when unique. Returns dup=true when any dedup level or
// the URL unique index rejected it.
func (c *Collector) ingest(ctx context.Context, source *entity.Source, raw adapter.RawArticle) (string, bool, error) {
	canonical := fingerprint.CanonicalURL(raw.URL)

	// Feeds re-serve the same items every cycle; catch URL-level
	// duplicates before spending a full-text fetch on them.
	if exists, err := c.articles.ExistsByURL(ctx, canonical); err != nil {
		return "", false, err
	} else if exists {
		metrics.RecordDedupHit("url")
		return "", true, nil
	}

	title := normalize.Title(normalize.Text(raw.Title), source.Name)
	bodyText := raw.RawText
	bodyMarkdown := ""
	if bodyText == "" && raw.RawHTML != "" {
		bodyText = normalize.Text(raw.RawHTML)
	}

	// Feeds and APIs often carry only a teaser; pull the full page when
	// the body is too short to enrich well.
	if len(bodyText) < minBodyChars {
		if got, err := c.extractor.Extract(ctx, canonical); err == nil {
			bodyText = normalize.Text(got.Text)
			bodyMarkdown = got.Markdown
			if title == "" {
				title = normalize.Title(normalize.Text(got.Title), source.Name)
			}
		} else {
			slog.Debug("full-text extraction failed, keeping adapter body",
				slog.String("url", canonical),
				slog.String("error", err.Error()))
		}
	}

	language := raw.Language
	if language == "" {
		language = normalize.DetectLanguage(title + " " + bodyText)
	}
	if language == "" {
		language = source.Language
	}

	simHash := fingerprint.SimHash(title)
	minHash := fingerprint.MinHash(bodyText)

	outcome, err := c.deduper.Check(ctx, canonical, simHash, minHash)
	if err != nil {
		return "", false, err
	}
	if outcome.Duplicate {
		slog.Debug("duplicate article skipped",
			slog.String("source_id", source.SourceID),
			slog.String("url", canonical),
			slog.String("level", string(outcome.Level)),
			slog.String("matched_id", outcome.MatchedID))
		return "", true, nil
	}

	article := &entity.Article{
		ID:               uuid.NewString(),
		SourceID:         source.SourceID,
		URL:              canonical,
		Title:            title,
		BodyText:         bodyText,
		BodyMarkdown:     bodyMarkdown,
		Language:         language,
		PublishedAt:      raw.PublishedAt,
		FetchedAt:        time.Now(),
		TitleSimHash:     simHash,
		ContentMinHash:   minHash,
		ProcessingStatus: entity.StatusPending,
	}

	inserted, err := c.articles.Insert(ctx, article)
	if err != nil {
		return "", false, fmt.Errorf("insert article: %w", err)
	}
	if !inserted {
		// Another cycle won the URL unique index race.
		metrics.RecordDedupHit("url")
		return "", true, nil
	}

	c.deduper.Remember(article.ID, simHash, minHash)
	return article.ID, false, nil
}

// cycleStatus maps the cycle's errors onto a fetch log status. A feed
// that simply has nothing new is a success.
func cycleStatus(fetchErr error, itemErr string, found int) entity.FetchStatus {
	switch {
	case fetchErr != nil && found == 0:
		return entity.FetchFailed
	case fetchErr != nil || itemErr != "":
		return entity.FetchPartial
	default:
		return entity.FetchSuccess
	}
}

// evaluateHealth recomputes the source's health from its recent fetch
// logs: success rate at least 80% is healthy, 50% to 80% degraded, and
// below 50% or no success within three fetch intervals failing.
func (c *Collector) evaluateHealth(ctx context.Context, source *entity.Source) {
	interval := time.Duration(source.FetchIntervalMinutes) * time.Minute
	lookback := 24 * time.Hour
	if 3*interval > lookback {
		lookback = 3 * interval
	}

	logs, err := c.fetchLogs.RecentBySource(ctx, source.SourceID, time.Now().Add(-lookback))
	if err != nil {
		slog.Error("health evaluation query failed",
			slog.String("source_id", source.SourceID),
			slog.String("error", err.Error()))
		return
	}
	status := EvaluateHealth(logs, interval, time.Now())

	if status != source.HealthStatus {
		slog.Info("source health changed",
			slog.String("source_id", source.SourceID),
			slog.String("from", string(source.HealthStatus)),
			slog.String("to", string(status)))
	}
	source.HealthStatus = status
	if err := c.sources.UpdateHealth(ctx, source.SourceID, status); err != nil {
		slog.Error("source health update failed",
			slog.String("source_id", source.SourceID),
			slog.String("error", err.Error()))
	}
}

// EvaluateHealth derives a health status from recent fetch logs.
// Health is informational; a failing source keeps being scheduled.
func EvaluateHealth(logs []*entity.FetchLog, interval time.Duration, now time.Time) entity.HealthStatus {
	if len(logs) == 0 {
		return entity.HealthHealthy
	}

	var ok int
	lastSuccess := time.Time{}
	for _, l := range logs {
		if l.Status == entity.FetchSuccess || l.Status == entity.FetchPartial {
			ok++
			if l.StartedAt.After(lastSuccess) {
				lastSuccess = l.StartedAt
			}
		}
	}

	if lastSuccess.IsZero() || now.Sub(lastSuccess) > 3*interval {
		return entity.HealthFailing
	}

	rate := float64(ok) / float64(len(logs))
	switch {
	case rate >= 0.8:
		return entity.HealthHealthy
	case rate >= 0.5:
		return entity.HealthDegraded
	default:
		return entity.HealthFailing
	}
}
