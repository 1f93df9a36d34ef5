package enrich

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/llm"
	"logistics-news/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubArticleRepo struct {
	repository.ArticleRepository

	mu        sync.Mutex
	articles  map[string]*entity.Article
	failed    map[string]string
	updated   []string
	released  []string
	claimFail bool
}

func newStubRepo(articles ...*entity.Article) *stubArticleRepo {
	m := make(map[string]*entity.Article)
	for _, a := range articles {
		m[a.ID] = a
	}
	return &stubArticleRepo{articles: m, failed: map[string]string{}}
}

func (s *stubArticleRepo) ClaimForProcessing(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok || a.ProcessingStatus != entity.StatusPending {
		return false, nil
	}
	a.ProcessingStatus = entity.StatusProcessing
	return true, nil
}

func (s *stubArticleRepo) Get(_ context.Context, id string) (*entity.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return a, nil
}

func (s *stubArticleRepo) UpdateEnrichment(_ context.Context, a *entity.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, a.ID)
	s.articles[a.ID] = a
	return nil
}

func (s *stubArticleRepo) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = reason
	if a, ok := s.articles[id]; ok {
		a.ProcessingStatus = entity.StatusFailed
	}
	return nil
}

func (s *stubArticleRepo) ResetToPending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, id)
	if a, ok := s.articles[id]; ok {
		a.ProcessingStatus = entity.StatusPending
	}
	return nil
}

type stubEnricher struct {
	enrichment *entity.Enrichment
	err        error
}

func (s *stubEnricher) Enrich(_ context.Context, _, _, _ string) (*entity.Enrichment, error) {
	return s.enrichment, s.err
}

type stubEmbedder struct {
	dims int
	err  error
	got  string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.got = text
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dims), nil
}

type capturePublisher struct {
	mu        sync.Mutex
	published []*entity.Article
}

func (c *capturePublisher) Publish(a *entity.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, a)
}

func validEnrichment() *entity.Enrichment {
	return &entity.Enrichment{
		SummaryEN:      "Rates rose across transpacific lanes.",
		SummaryZH:      "跨太平洋航线运价上涨。",
		TransportModes: []entity.TransportMode{entity.ModeOcean},
		PrimaryTopic:   "freight_rates",
		Sentiment:      entity.SentimentNegative,
		MarketImpact:   entity.ImpactHigh,
		Urgency:        entity.UrgencyHigh,
	}
}

func pendingArticle(id string) *entity.Article {
	return &entity.Article{
		ID:               id,
		SourceID:         "src",
		URL:              "https://example.com/" + id,
		Title:            "Rates jump",
		BodyText:         "body",
		ProcessingStatus: entity.StatusPending,
	}
}

func TestPipeline_Process_Success(t *testing.T) {
	repo := newStubRepo(pendingArticle("a1"))
	embedder := &stubEmbedder{dims: entity.EmbeddingDimensions}
	pub := &capturePublisher{}
	p := New(repo, &stubEnricher{enrichment: validEnrichment()}, embedder, pub, 1)

	p.process(context.Background(), "a1")

	a := repo.articles["a1"]
	assert.Equal(t, entity.StatusCompleted, a.ProcessingStatus)
	assert.True(t, a.LLMProcessed)
	assert.Len(t, a.Embedding, entity.EmbeddingDimensions)
	assert.Equal(t, entity.SentimentNegative, a.Enrichment.Sentiment)
	assert.Equal(t, "Rates jump\nRates rose across transpacific lanes.", embedder.got)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "a1", pub.published[0].ID)
}

func TestPipeline_Process_InvalidLLMResponse(t *testing.T) {
	repo := newStubRepo(pendingArticle("a1"))
	pub := &capturePublisher{}
	p := New(repo, &stubEnricher{err: fmt.Errorf("%w: sentiment \"maybe\"", llm.ErrInvalidResponse)},
		&stubEmbedder{dims: entity.EmbeddingDimensions}, pub, 1)

	p.process(context.Background(), "a1")

	a := repo.articles["a1"]
	assert.Equal(t, entity.StatusFailed, a.ProcessingStatus)
	assert.False(t, a.LLMProcessed)
	assert.Empty(t, a.Embedding)
	assert.Contains(t, repo.failed["a1"], "sentiment")
	// Dispatcher never sees a failed article.
	assert.Empty(t, pub.published)
}

func TestPipeline_Process_EmbeddingDimensionMismatch(t *testing.T) {
	repo := newStubRepo(pendingArticle("a1"))
	embedder := &stubEmbedder{err: fmt.Errorf("%w: embedding dimension 768, want 1024", llm.ErrInvalidResponse)}
	p := New(repo, &stubEnricher{enrichment: validEnrichment()}, embedder, nil, 1)

	p.process(context.Background(), "a1")
	assert.Equal(t, entity.StatusFailed, repo.articles["a1"].ProcessingStatus)
}

func TestPipeline_Process_ClaimLost(t *testing.T) {
	a := pendingArticle("a1")
	a.ProcessingStatus = entity.StatusProcessing
	repo := newStubRepo(a)
	pub := &capturePublisher{}
	p := New(repo, &stubEnricher{enrichment: validEnrichment()}, &stubEmbedder{dims: 1024}, pub, 1)

	p.process(context.Background(), "a1")
	assert.Empty(t, repo.updated)
	assert.Empty(t, pub.published)
}

func TestPipeline_EndToEnd_Queue(t *testing.T) {
	repo := newStubRepo(pendingArticle("a1"), pendingArticle("a2"))
	pub := &capturePublisher{}
	p := New(repo, &stubEnricher{enrichment: validEnrichment()}, &stubEmbedder{dims: 1024}, pub, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Enqueue("a1")
	p.Enqueue("a2")
	// Duplicate signal is a no-op thanks to the status CAS.
	p.Enqueue("a1")
	p.Stop()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.published, 2)
}

func TestEmbeddingInput(t *testing.T) {
	assert.Equal(t, "title\nsummary", EmbeddingInput("title", "summary"))
}

func TestPipeline_Stop_Idempotent(t *testing.T) {
	p := New(newStubRepo(), &stubEnricher{}, &stubEmbedder{dims: 1024}, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Start(ctx)
	p.Stop()
	p.Stop()
}
