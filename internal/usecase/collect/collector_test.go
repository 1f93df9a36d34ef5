package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"logistics-news/internal/dedup"
	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/adapter"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubArticleRepo struct {
	repository.ArticleRepository

	mu       sync.Mutex
	inserted []*entity.Article
	urls     map[string]bool
}

func newStubArticleRepo() *stubArticleRepo {
	return &stubArticleRepo{urls: map[string]bool{}}
}

func (s *stubArticleRepo) Insert(_ context.Context, a *entity.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.urls[a.URL] {
		return false, nil
	}
	s.urls[a.URL] = true
	s.inserted = append(s.inserted, a)
	return true, nil
}

func (s *stubArticleRepo) ExistsByURL(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urls[url], nil
}

func (s *stubArticleRepo) Fingerprints(_ context.Context) ([]repository.Fingerprint, error) {
	return nil, nil
}

type stubSourceRepo struct {
	repository.SourceRepository

	mu      sync.Mutex
	touched bool
	health  entity.HealthStatus
}

func (s *stubSourceRepo) TouchFetchedAt(_ context.Context, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = true
	return nil
}

func (s *stubSourceRepo) UpdateHealth(_ context.Context, _ string, status entity.HealthStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = status
	return nil
}

type stubFetchLogRepo struct {
	repository.FetchLogRepository

	mu   sync.Mutex
	logs []*entity.FetchLog
}

func (s *stubFetchLogRepo) Insert(_ context.Context, log *entity.FetchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *stubFetchLogRepo) RecentBySource(_ context.Context, _ string, _ time.Time) ([]*entity.FetchLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.FetchLog(nil), s.logs...), nil
}

type harness struct {
	collector *Collector
	articles  *stubArticleRepo
	sources   *stubSourceRepo
	fetchLogs *stubFetchLogRepo
	enqueued  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := fetcher.DefaultConfig()
	cfg.DenyPrivateIPs = false
	extractor := fetcher.NewExtractor(cfg)
	factory := adapter.NewFactory(cfg, extractor)

	h := &harness{
		articles:  newStubArticleRepo(),
		sources:   &stubSourceRepo{},
		fetchLogs: &stubFetchLogRepo{},
	}
	deduper := dedup.New(h.articles, dedup.Config{})
	h.collector = New(h.sources, h.articles, h.fetchLogs, factory, extractor, deduper,
		func(id string) { h.enqueued = append(h.enqueued, id) })
	return h
}

// newsServer serves a two-item feed whose entries link back to article
// pages on the same server, so full-text extraction stays local.
func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Harbor Report</title>
<item><title>Congestion spreads to inland depots | Harbor Report</title>
<link>%s/articles/2026/depot-congestion?utm_source=rss</link>
<description>Short teaser.</description>
<pubDate>Wed, 19 Aug 2026 09:00:00 GMT</pubDate></item>
<item><title>Diesel prices fall for hauliers</title>
<link>%s/articles/2026/diesel-prices</link>
<description>Another teaser.</description></item>
</channel></rss>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/articles/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><article><h1>story</h1>
<p>Inland container depots across the region reported record utilization this week as import
boxes pile up faster than rail and truck capacity can clear them, extending delays that began
at the seaports earlier this summer and forcing shippers to reroute urgent cargo.</p>
<p>Operators said gate turn times have doubled and several depots stopped accepting empties,
a step that historically precedes broader network congestion lasting several months.</p>
</article></body></html>`)
	})
	srv = httptest.NewServer(mux)
	return srv
}

func testSource(url string) *entity.Source {
	return &entity.Source{
		SourceID:             "harbor-report",
		Name:                 "Harbor Report",
		Kind:                 entity.KindFeed,
		URL:                  url,
		FetchIntervalMinutes: 30,
		Enabled:              true,
		HealthStatus:         entity.HealthHealthy,
	}
}

func TestCollector_CollectSource(t *testing.T) {
	srv := newsServer(t)
	defer srv.Close()

	h := newHarness(t)
	res, err := h.collector.CollectSource(context.Background(), testSource(srv.URL+"/feed"))
	require.NoError(t, err)

	assert.Equal(t, entity.FetchSuccess, res.Status)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 2, res.New)
	assert.Equal(t, 0, res.Dedup)
	assert.Len(t, res.NewArticleIDs, 2)
	assert.Equal(t, res.NewArticleIDs, h.enqueued)

	require.Len(t, h.articles.inserted, 2)
	first := h.articles.inserted[0]
	// Tracking parameters stripped, source suffix removed, full text pulled.
	assert.Equal(t, srv.URL+"/articles/2026/depot-congestion", first.URL)
	assert.Equal(t, "Congestion spreads to inland depots", first.Title)
	assert.Contains(t, first.BodyText, "record utilization")
	assert.Equal(t, entity.StatusPending, first.ProcessingStatus)
	assert.NotZero(t, first.TitleSimHash)
	assert.NotEmpty(t, first.ContentMinHash)
	assert.Equal(t, "en", first.Language)

	require.Len(t, h.fetchLogs.logs, 1)
	log := h.fetchLogs.logs[0]
	assert.Equal(t, entity.FetchSuccess, log.Status)
	assert.GreaterOrEqual(t, log.ArticlesFound, log.ArticlesNew+log.ArticlesDedup)
	assert.True(t, h.sources.touched)
	assert.Equal(t, entity.HealthHealthy, h.sources.health)
}

func TestCollector_CollectSource_SecondRunDedups(t *testing.T) {
	srv := newsServer(t)
	defer srv.Close()

	h := newHarness(t)
	src := testSource(srv.URL + "/feed")

	_, err := h.collector.CollectSource(context.Background(), src)
	require.NoError(t, err)

	res, err := h.collector.CollectSource(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, entity.FetchSuccess, res.Status)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 0, res.New)
	assert.Equal(t, 2, res.Dedup)
	assert.Len(t, h.articles.inserted, 2)
}

func TestIngest_CanonicalizesURL(t *testing.T) {
	h := newHarness(t)
	body := strings.Repeat("container freight rates rose again this week. ", 12)

	id, dup, err := h.collector.ingest(context.Background(), testSource("https://x.example"),
		adapter.RawArticle{
			URL:     "HTTPS://News.Example:443/story?utm_campaign=rss&id=7",
			Title:   "Rates up",
			RawText: body,
		})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEmpty(t, id)
	require.Len(t, h.articles.inserted, 1)
	assert.Equal(t, "https://news.example/story?id=7", h.articles.inserted[0].URL)

	// Unparsable URLs fall back to the raw string rather than failing
	// the whole item.
	id, dup, err = h.collector.ingest(context.Background(), testSource("https://x.example"),
		adapter.RawArticle{
			URL:     "http://bad url with spaces",
			Title:   "Different headline about diesel",
			RawText: strings.Repeat("diesel taxes change haulier economics across the region. ", 12),
		})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEmpty(t, id)
	require.Len(t, h.articles.inserted, 2)
	assert.Equal(t, "http://bad url with spaces", h.articles.inserted[1].URL)
}

func TestCollector_CollectSource_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h := newHarness(t)
	res, err := h.collector.CollectSource(context.Background(), testSource(srv.URL+"/feed"))
	require.Error(t, err)

	assert.Equal(t, entity.FetchFailed, res.Status)
	require.Len(t, h.fetchLogs.logs, 1)
	assert.Equal(t, entity.FetchFailed, h.fetchLogs.logs[0].Status)
	assert.NotEmpty(t, h.fetchLogs.logs[0].ErrorMessage)
	assert.Empty(t, h.enqueued)
}

func TestEvaluateHealth(t *testing.T) {
	now := time.Now()
	interval := 30 * time.Minute
	mk := func(status entity.FetchStatus, age time.Duration) *entity.FetchLog {
		return &entity.FetchLog{Status: status, StartedAt: now.Add(-age)}
	}

	tests := []struct {
		name string
		logs []*entity.FetchLog
		want entity.HealthStatus
	}{
		{"no history", nil, entity.HealthHealthy},
		{"all success", []*entity.FetchLog{
			mk(entity.FetchSuccess, time.Hour), mk(entity.FetchSuccess, 30*time.Minute), mk(entity.FetchPartial, time.Minute),
		}, entity.HealthHealthy},
		{"two of three", []*entity.FetchLog{
			mk(entity.FetchSuccess, time.Hour), mk(entity.FetchFailed, 30*time.Minute), mk(entity.FetchSuccess, time.Minute),
		}, entity.HealthDegraded},
		{"mostly failing", []*entity.FetchLog{
			mk(entity.FetchFailed, time.Hour), mk(entity.FetchFailed, 30*time.Minute), mk(entity.FetchSuccess, time.Minute),
		}, entity.HealthFailing},
		{"stale success", []*entity.FetchLog{
			mk(entity.FetchSuccess, 4*time.Hour), mk(entity.FetchFailed, time.Hour), mk(entity.FetchFailed, time.Minute),
		}, entity.HealthFailing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateHealth(tt.logs, interval, now))
		})
	}
}
