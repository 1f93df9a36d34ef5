// Package enrich runs the LLM enrichment pipeline: claim a pending
// article, call the LLM, validate, embed, persist, and hand the
// completed article to the dispatcher.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/llm"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/repository"
)

const (
	// DefaultWorkers is the enrichment pool size.
	DefaultWorkers = 4

	// queueCapacity bounds the pending id queue. The backstop sweep
	// recovers ids dropped on overflow.
	queueCapacity = 1024
)

// Publisher receives completed articles for fan-out.
type Publisher interface {
	Publish(article *entity.Article)
}

// Pipeline is the bounded worker pool.
type Pipeline struct {
	articles  repository.ArticleRepository
	enricher  llm.Enricher
	embedder  llm.Embedder
	publisher Publisher

	workers int
	queue   chan string
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Pipeline. publisher may be nil in tests.
func New(articles repository.ArticleRepository, enricher llm.Enricher, embedder llm.Embedder, publisher Publisher, workers int) *Pipeline {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{
		articles:  articles,
		enricher:  enricher,
		embedder:  embedder,
		publisher: publisher,
		workers:   workers,
		queue:     make(chan string, queueCapacity),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled
// or the queue is closed.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx)
		}
		slog.Info("enrichment pipeline started", slog.Int("workers", p.workers))
	})
}

// Stop closes the queue and waits for workers to finish their current
// jobs. Queued but unprocessed ids are recovered by the backstop sweep
// after restart.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// Enqueue submits an article id for enrichment. Non-blocking: when the
// queue is full the id is dropped and left to the backstop sweep.
func (p *Pipeline) Enqueue(articleID string) {
	select {
	case p.queue <- articleID:
		metrics.EnrichmentQueueDepth.Set(float64(len(p.queue)))
	default:
		slog.Warn("enrichment queue full, leaving article to backstop",
			slog.String("article_id", articleID))
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.EnrichmentQueueDepth.Set(float64(len(p.queue)))
			p.process(ctx, id)
		}
	}
}

// process runs one article through the pipeline. All failures are
// logged and terminal for the article; the pipeline itself moves on.
func (p *Pipeline) process(ctx context.Context, articleID string) {
	start := time.Now()

	claimed, err := p.articles.ClaimForProcessing(ctx, articleID)
	if err != nil {
		slog.Error("enrichment claim failed",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
		return
	}
	if !claimed {
		// Already processing or done; duplicate signal from the backstop.
		return
	}

	article, err := p.articles.Get(ctx, articleID)
	if err != nil {
		slog.Error("enrichment article load failed",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
		p.release(ctx, articleID)
		return
	}

	if err := p.enrich(ctx, article); err != nil {
		p.fail(ctx, article.ID, err)
		metrics.RecordEnrichment(false, time.Since(start))
		return
	}

	if err := p.articles.UpdateEnrichment(ctx, article); err != nil {
		slog.Error("enrichment persist failed",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()))
		p.release(ctx, article.ID)
		metrics.RecordEnrichment(false, time.Since(start))
		return
	}

	metrics.RecordEnrichment(true, time.Since(start))
	slog.Info("article enriched",
		slog.String("article_id", article.ID),
		slog.String("sentiment", string(article.Enrichment.Sentiment)),
		slog.String("urgency", string(article.Enrichment.Urgency)),
		slog.Duration("duration", time.Since(start)))

	if p.publisher != nil {
		p.publisher.Publish(article)
	}
}

// enrich mutates the article in place with LLM output and embedding.
func (p *Pipeline) enrich(ctx context.Context, article *entity.Article) error {
	enrichment, err := p.enricher.Enrich(ctx, article.Title, article.BodyText, article.Language)
	if err != nil {
		return fmt.Errorf("llm enrichment: %w", err)
	}
	article.Enrichment = *enrichment

	embedding, err := p.embedder.Embed(ctx, EmbeddingInput(article.Title, enrichment.SummaryEN))
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	article.Embedding = embedding

	article.ProcessingStatus = entity.StatusCompleted
	article.LLMProcessed = true
	return nil
}

// fail marks the article terminally failed. Validation failures are
// expected and logged at warn; transport failures at error.
func (p *Pipeline) fail(ctx context.Context, articleID string, cause error) {
	level := slog.LevelError
	if errors.Is(cause, llm.ErrInvalidResponse) {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "enrichment failed",
		slog.String("article_id", articleID),
		slog.String("error", cause.Error()))

	if err := p.articles.MarkFailed(ctx, articleID, cause.Error()); err != nil {
		slog.Error("enrichment failure persist failed",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
	}
}

// release returns a claimed article to pending after an infrastructure
// error, so the backstop retries it.
func (p *Pipeline) release(ctx context.Context, articleID string) {
	if err := p.articles.ResetToPending(ctx, articleID); err != nil {
		slog.Error("enrichment release failed",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
	}
}

// EmbeddingInput is the canonical text embedded for an article.
func EmbeddingInput(title, summaryEN string) string {
	return title + "\n" + summaryEN
}
