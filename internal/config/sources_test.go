package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

const validSourcesYAML = `
sources:
  - source_id: freightwaves
    name: FreightWaves
    kind: feed
    url: https://www.freightwaves.com/feed
    language: en
    categories: [ocean, air]
    fetch_interval_minutes: 30
    priority: 8
    enabled: true
  - source_id: port-notices
    name: Port Authority Notices
    kind: scraper
    url: https://port.example/notices
    enabled: true
    scraper_config:
      list_selector: "div.notice a"
      title_selector: "h1"
      body_selector: "article"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSources(t *testing.T) {
	file, err := LoadSources(writeTemp(t, validSourcesYAML))
	require.NoError(t, err)
	require.Len(t, file.Sources, 2)

	assert.Equal(t, "freightwaves", file.Sources[0].SourceID)
	assert.Equal(t, entity.KindFeed, file.Sources[0].Kind)
	assert.Equal(t, 30, file.Sources[0].FetchIntervalMinutes)
	assert.Equal(t, []string{"ocean", "air"}, file.Sources[0].Categories)

	// Interval defaults to 60 when omitted.
	assert.Equal(t, 60, file.Sources[1].FetchIntervalMinutes)
	require.NotNil(t, file.Sources[1].ScraperConfig)
	assert.Equal(t, "div.notice a", file.Sources[1].ScraperConfig.ListSelector)
}

func TestLoadSources_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing kind": `
sources:
  - source_id: x
    name: X
    url: https://x.example
`,
		"duplicate id": `
sources:
  - {source_id: x, name: X, kind: feed, url: "https://x.example/feed"}
  - {source_id: x, name: X2, kind: feed, url: "https://x2.example/feed"}
`,
		"scraper without selector": `
sources:
  - {source_id: s, name: S, kind: scraper, url: "https://s.example"}
`,
		"not yaml": `{{{`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSources(writeTemp(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

type upsertRecorder struct {
	repository.SourceRepository
	ids []string
}

func (r *upsertRecorder) Upsert(_ context.Context, s *entity.Source) error {
	r.ids = append(r.ids, s.SourceID)
	return nil
}

func TestSeed(t *testing.T) {
	file, err := LoadSources(writeTemp(t, validSourcesYAML))
	require.NoError(t, err)

	repo := &upsertRecorder{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, file.Seed(ctx, repo))
	assert.Equal(t, []string{"freightwaves", "port-notices"}, repo.ids)
}

func TestLoadDiscovery(t *testing.T) {
	path := writeTemp(t, `
discovery:
  queries:
    - "container shipping news"
    - "海运 新闻"
  seeds:
    - https://hub.example/logistics
  blocklist:
    - facebook.com
`)
	file, err := LoadDiscovery(path)
	require.NoError(t, err)
	assert.Len(t, file.Discovery.Queries, 2)
	assert.Equal(t, []string{"https://hub.example/logistics"}, file.Discovery.Seeds)
	assert.Equal(t, []string{"facebook.com"}, file.Discovery.Blocklist)
}

func TestLoadDiscovery_EmptyQuery(t *testing.T) {
	path := writeTemp(t, "discovery:\n  queries: [\"ok\", \"\"]\n")
	_, err := LoadDiscovery(path)
	assert.Error(t, err)
}
