// Package adapter provides source adapters that fetch raw articles from
// feeds, JSON APIs, and scraped HTML pages. Each adapter normalizes its
// origin format into RawArticle records; deduplication and enrichment
// happen downstream.
package adapter

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"logistics-news/internal/domain/entity"
)

// RawArticle is one article as an adapter saw it, before normalization
// and fingerprinting.
type RawArticle struct {
	URL         string
	Title       string
	PublishedAt time.Time
	RawHTML     string
	RawText     string
	Author      string
	Language    string
	Extra       map[string]string
}

// Adapter fetches the current batch of articles for one source.
//
// Fetch returns the articles it managed to extract even when some items
// fail; an error alongside a non-empty slice means a partial result.
type Adapter interface {
	Fetch(ctx context.Context, source *entity.Source) ([]RawArticle, error)
}

// newHTTPClient builds the shared client used by all adapters.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
