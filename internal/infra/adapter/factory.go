package adapter

import (
	"fmt"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/fetcher"
)

// Factory creates adapter instances with consistent configuration and
// routes sources to the adapter matching their kind.
type Factory struct {
	adapters map[entity.SourceKind]Adapter
}

// NewFactory builds one adapter per source kind, sharing a single HTTP
// client and page extractor across them.
func NewFactory(cfg fetcher.Config, extractor *fetcher.Extractor) *Factory {
	client := newHTTPClient(cfg.Timeout)
	feed := NewFeedAdapter(client, cfg.UserAgent)

	return &Factory{
		adapters: map[entity.SourceKind]Adapter{
			entity.KindFeed:      feed,
			entity.KindAPI:       NewAPIAdapter(client, cfg.UserAgent),
			entity.KindScraper:   NewScraperAdapter(extractor),
			entity.KindUniversal: NewUniversalAdapter(feed, extractor),
		},
	}
}

// ForSource returns the adapter handling the source's kind.
func (f *Factory) ForSource(source *entity.Source) (Adapter, error) {
	a, ok := f.adapters[source.Kind]
	if !ok {
		return nil, fmt.Errorf("source %s: no adapter for kind %q", source.SourceID, source.Kind)
	}
	return a, nil
}

// Universal exposes the universal adapter for discovery probes, which
// reuse its feed detection on candidate sites.
func (f *Factory) Universal() *UniversalAdapter {
	return f.adapters[entity.KindUniversal].(*UniversalAdapter)
}
