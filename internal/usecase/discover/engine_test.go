package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/fingerprint"
	"logistics-news/internal/infra/adapter"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/infra/search"
	"logistics-news/internal/repository"
)

type memCandidateRepo struct {
	mu         sync.Mutex
	byID       map[string]*entity.SourceCandidate
	insertFail bool
}

func newMemCandidateRepo() *memCandidateRepo {
	return &memCandidateRepo{byID: map[string]*entity.SourceCandidate{}}
}

func (r *memCandidateRepo) Insert(_ context.Context, c *entity.SourceCandidate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertFail {
		return false, fmt.Errorf("insert failed")
	}
	domain := fingerprint.Domain(c.URL)
	for _, existing := range r.byID {
		if fingerprint.Domain(existing.URL) == domain {
			return false, nil
		}
	}
	cp := *c
	r.byID[c.ID] = &cp
	return true, nil
}

func (r *memCandidateRepo) Get(_ context.Context, id string) (*entity.SourceCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCandidateRepo) List(_ context.Context, status entity.CandidateStatus, _, limit int) ([]*entity.SourceCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SourceCandidate
	for _, c := range r.byID {
		if c.Status == status && len(out) < limit {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCandidateRepo) ListDiscovered(ctx context.Context, limit int) ([]*entity.SourceCandidate, error) {
	return r.List(ctx, entity.CandidateDiscovered, 0, limit)
}

func (r *memCandidateRepo) Update(_ context.Context, c *entity.SourceCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *memCandidateRepo) ExistsByDomain(_ context.Context, domain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if fingerprint.Domain(c.URL) == domain {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.CandidateRepository = (*memCandidateRepo)(nil)

type captureSourceRepo struct {
	repository.SourceRepository
	mu      sync.Mutex
	created []*entity.Source
}

func (r *captureSourceRepo) Create(_ context.Context, s *entity.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.created = append(r.created, &cp)
	return nil
}

type fakeEngine struct {
	name    string
	results map[string][]string
	queries []string
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Search(_ context.Context, query string, _ int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.results[query], nil
}

func testStack(t *testing.T) (*fetcher.Extractor, *adapter.Factory) {
	t.Helper()
	cfg := fetcher.DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.Timeout = 5 * time.Second
	extractor := fetcher.NewExtractor(cfg)
	return extractor, adapter.NewFactory(cfg, extractor)
}

func newTestEngine(t *testing.T, candidates *memCandidateRepo, sources *captureSourceRepo, results map[string][]string, cfg Config) (*Engine, *fakeEngine) {
	t.Helper()
	extractor, factory := testStack(t)
	fake := &fakeEngine{name: "fake", results: results}
	return New(candidates, sources, []search.Engine{fake}, extractor, NewValidator(extractor, factory), cfg), fake
}

// relevantBody is long enough to pass the body-length check and dense
// enough in lexicon terms to max out relevance.
const relevantBody = `Ocean freight rates on the transpacific rose again this week as container
shipping lines cut capacity. Cargo owners and freight forwarders reported port
congestion at major terminals, with logistics managers warning that supply chain
disruption could spread to air cargo and rail freight. Carriers said vessel
schedules remain unreliable and customs delays are adding to tariff pressure on
importers and exporters across the trade.`

// feedSite serves a landing page advertising an RSS feed with four
// items, each carrying the given title prefix and body.
func feedSite(t *testing.T, siteTitle, itemTitle, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>%s</title>
<link rel="alternate" type="application/rss+xml" href="/feed"></head>
<body>latest news</body></html>`, siteTitle)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel>
<title>%s</title>`, siteTitle)
		for i := 1; i <= 4; i++ {
			fmt.Fprintf(w, `<item>
<title>%s %d</title>
<link>%s/news/2026/item-%d</link>
<pubDate>Mon, 17 Aug 2026 08:00:00 GMT</pubDate>
<description>%s</description>
</item>`, itemTitle, i, server.URL, i, body)
		}
		fmt.Fprintf(w, `</channel></rss>`)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCombinedScore(t *testing.T) {
	got := combinedScore(82, 78)
	assert.InDelta(t, 79.6, got, 0.001)
	assert.GreaterOrEqual(t, got, AutoApproveThreshold)

	assert.Less(t, combinedScore(82, 60), AutoApproveThreshold)
}

func TestQualityScore(t *testing.T) {
	assert.Equal(t, 0, qualityScore(sampleStats{}))
	assert.Equal(t, 100, qualityScore(sampleStats{Fetched: 5, WithTitle: 5, WithBody: 5, WithDate: 5, Canonical: 5}))
	// Two articles: the minimum-count component is withheld.
	assert.Equal(t, 80, qualityScore(sampleStats{Fetched: 2, WithTitle: 2, WithBody: 2, WithDate: 2, Canonical: 2}))
	// Half the samples missing bodies and dates.
	assert.Equal(t, 80, qualityScore(sampleStats{Fetched: 4, WithTitle: 4, WithBody: 2, WithDate: 2, Canonical: 4}))
}

func TestRelevanceScore(t *testing.T) {
	assert.Equal(t, 0, relevanceScore("gardening tips for spring flower beds"))
	assert.Equal(t, 100, relevanceScore(strings.Repeat("freight shipping logistics ", 20)))
	assert.Equal(t, weightHigh+weightMedium, relevanceScore("freight moved through the port"))
	// Chinese lexicon terms count too.
	assert.Equal(t, weightHigh*2, relevanceScore("物流公司发布海运数据"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "shippingwatch-example", slugify("shippingwatch.example"))
	assert.Equal(t, "harbor-report-co-uk", slugify("Harbor.Report.co.uk"))
}

func TestBlocked(t *testing.T) {
	e := &Engine{blocklist: DefaultBlocklist}
	assert.True(t, e.blocked("facebook.com"))
	assert.True(t, e.blocked("m.facebook.com"))
	assert.False(t, e.blocked("freightnews.example"))
}

func TestScan(t *testing.T) {
	seed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<a href="https://portupdates.example/news">Port Updates</a>
<a href="/about">About</a>
<a href="https://portupdates.example/contact">dup host</a>
</body></html>`)
	}))
	defer seed.Close()

	candidates := newMemCandidateRepo()
	sources := &captureSourceRepo{}
	engine, fake := newTestEngine(t, candidates, sources, map[string][]string{
		"container shipping news": {
			"https://www.freightnews.example/article/1",
			"https://facebook.com/somepage",
			"https://freightnews.example/article/2",
		},
	}, Config{
		Queries: []string{"container shipping news"},
		Seeds:   []string{seed.URL},
	})

	engine.Scan(context.Background())

	require.Equal(t, []string{"container shipping news"}, fake.queries)
	require.Len(t, candidates.byID, 2)

	byDomain := map[string]*entity.SourceCandidate{}
	for _, c := range candidates.byID {
		byDomain[fingerprint.Domain(c.URL)] = c
		assert.Equal(t, entity.CandidateDiscovered, c.Status)
	}
	require.Contains(t, byDomain, "freightnews.example")
	require.Contains(t, byDomain, "portupdates.example")
	assert.Equal(t, "search:fake", byDomain["freightnews.example"].DiscoveredVia)
	assert.Equal(t, "container shipping news", byDomain["freightnews.example"].DiscoveryQuery)
	assert.Equal(t, "seed_crawl", byDomain["portupdates.example"].DiscoveredVia)

	// Re-scanning inserts nothing new.
	engine.Scan(context.Background())
	assert.Len(t, candidates.byID, 2)
}

func TestValidateBatch_AutoApprove(t *testing.T) {
	site := feedSite(t, "Harbor Report", "Freight rates update", relevantBody)

	candidates := newMemCandidateRepo()
	sources := &captureSourceRepo{}
	engine, _ := newTestEngine(t, candidates, sources, nil, Config{})

	candidate := &entity.SourceCandidate{
		ID:            "cand-1",
		URL:           site.URL,
		DiscoveredVia: "search:fake",
		Status:        entity.CandidateDiscovered,
	}
	_, err := candidates.Insert(context.Background(), candidate)
	require.NoError(t, err)

	engine.ValidateBatch(context.Background())

	got, err := candidates.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, entity.CandidateApproved, got.Status)
	assert.True(t, got.AutoApproved)
	assert.Equal(t, entity.KindFeed, got.Kind)
	assert.Equal(t, site.URL+"/feed", got.FeedURL)
	assert.Equal(t, "Harbor Report", got.Name)
	assert.Equal(t, 100, got.QualityScore)
	assert.Equal(t, 100, got.RelevanceScore)
	assert.Equal(t, 100, got.CombinedScore)
	assert.Len(t, got.Samples, 4)
	assert.Equal(t, 4, got.Details.ArticlesFetched)
	assert.False(t, got.ValidatedAt.IsZero())

	require.Len(t, sources.created, 1)
	src := sources.created[0]
	assert.True(t, strings.HasPrefix(src.SourceID, "127-0-0-1-"), "source_id %q", src.SourceID)
	assert.Equal(t, entity.KindFeed, src.Kind)
	assert.Equal(t, site.URL+"/feed", src.URL)
	assert.True(t, src.Enabled)
	assert.NoError(t, src.Validate())
}

func TestValidateBatch_BelowThreshold(t *testing.T) {
	body := strings.Repeat("Plant tomato seedlings after the last frost and water them deeply "+
		"every morning. Mulch keeps the soil moist through the summer. ", 3)
	site := feedSite(t, "Garden Weekly", "Gardening tips part", body)

	candidates := newMemCandidateRepo()
	sources := &captureSourceRepo{}
	engine, _ := newTestEngine(t, candidates, sources, nil, Config{})

	_, err := candidates.Insert(context.Background(), &entity.SourceCandidate{
		ID: "cand-2", URL: site.URL, Status: entity.CandidateDiscovered,
	})
	require.NoError(t, err)

	engine.ValidateBatch(context.Background())

	got, err := candidates.Get(context.Background(), "cand-2")
	require.NoError(t, err)
	// Perfect quality but irrelevant content stays queued for review.
	assert.Equal(t, entity.CandidateValidated, got.Status)
	assert.False(t, got.AutoApproved)
	assert.Equal(t, 100, got.QualityScore)
	assert.Equal(t, 0, got.RelevanceScore)
	assert.Equal(t, 40, got.CombinedScore)
	assert.Empty(t, sources.created)
}

func TestValidateBatch_Unreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	candidates := newMemCandidateRepo()
	engine, _ := newTestEngine(t, candidates, &captureSourceRepo{}, nil, Config{})

	_, err := candidates.Insert(context.Background(), &entity.SourceCandidate{
		ID: "cand-3", URL: deadURL, Status: entity.CandidateDiscovered,
	})
	require.NoError(t, err)

	engine.ValidateBatch(context.Background())

	got, err := candidates.Get(context.Background(), "cand-3")
	require.NoError(t, err)
	assert.Equal(t, entity.CandidateRejected, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestProbe(t *testing.T) {
	site := feedSite(t, "Harbor Report", "Freight rates update", relevantBody)

	candidates := newMemCandidateRepo()
	engine, _ := newTestEngine(t, candidates, &captureSourceRepo{}, nil, Config{})

	result, err := engine.Probe(context.Background(), site.URL)
	require.NoError(t, err)
	assert.Equal(t, entity.KindFeed, result.Kind)
	assert.InDelta(t, 100.0, result.Combined, 0.001)
	assert.Len(t, result.Samples, 4)
	// Probe never persists.
	assert.Empty(t, candidates.byID)
}

func TestApproveAndReject(t *testing.T) {
	candidates := newMemCandidateRepo()
	sources := &captureSourceRepo{}
	engine, _ := newTestEngine(t, candidates, sources, nil, Config{})

	for _, id := range []string{"keep", "drop"} {
		_, err := candidates.Insert(context.Background(), &entity.SourceCandidate{
			ID:     id,
			URL:    "https://" + id + "-news.example",
			Name:   id + " news",
			Status: entity.CandidateValidated,
		})
		require.NoError(t, err)
	}

	src, err := engine.Approve(context.Background(), "keep")
	require.NoError(t, err)
	assert.Equal(t, entity.KindUniversal, src.Kind)
	assert.True(t, strings.HasPrefix(src.SourceID, "keep-news-example-"))
	require.Len(t, sources.created, 1)

	got, err := candidates.Get(context.Background(), "keep")
	require.NoError(t, err)
	assert.Equal(t, entity.CandidateApproved, got.Status)
	assert.False(t, got.AutoApproved)

	_, err = engine.Approve(context.Background(), "keep")
	assert.Error(t, err)

	require.NoError(t, engine.Reject(context.Background(), "drop"))
	got, err = candidates.Get(context.Background(), "drop")
	require.NoError(t, err)
	assert.Equal(t, entity.CandidateRejected, got.Status)

	assert.Error(t, engine.Reject(context.Background(), "missing"))
}
