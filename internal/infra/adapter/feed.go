package adapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/resilience/circuitbreaker"
	"logistics-news/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// FeedAdapter fetches RSS and Atom feeds using gofeed.
// Each source gets its own circuit breaker so a persistently broken feed
// cannot poison fetches of the others.
type FeedAdapter struct {
	client      *http.Client
	userAgent   string
	retryConfig retry.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewFeedAdapter creates a FeedAdapter with the given HTTP client.
func NewFeedAdapter(client *http.Client, userAgent string) *FeedAdapter {
	return &FeedAdapter{
		client:      client,
		userAgent:   userAgent,
		retryConfig: retry.AdapterFetchConfig(),
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

func (a *FeedAdapter) breaker(sourceID string) *circuitbreaker.CircuitBreaker {
	a.mu.Lock()
	defer a.mu.Unlock()
	cb, ok := a.breakers[sourceID]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.SourceFetchConfig(sourceID))
		a.breakers[sourceID] = cb
	}
	return cb
}

// Fetch retrieves and parses the feed configured on the source.
// An empty feed is a successful fetch with zero articles.
func (a *FeedAdapter) Fetch(ctx context.Context, source *entity.Source) ([]RawArticle, error) {
	var articles []RawArticle
	cb := a.breaker(source.SourceID)

	retryErr := retry.WithBackoff(ctx, a.retryConfig, func() error {
		result, err := cb.Execute(func() (interface{}, error) {
			return a.doFetch(ctx, source.URL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("source_id", source.SourceID),
					slog.String("url", source.URL),
					slog.String("state", cb.State().String()))
			}
			return err
		}
		articles = result.([]RawArticle)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return articles, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (a *FeedAdapter) doFetch(ctx context.Context, feedURL string) ([]RawArticle, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = a.userAgent
	fp.Client = a.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	articles := make([]RawArticle, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Link == "" {
			continue
		}

		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pubAt = *it.UpdatedParsed
		}

		// Content carries the full entry body on Atom feeds; RSS items
		// usually only have a Description.
		content := it.Content
		if content == "" {
			content = it.Description
		}

		author := ""
		if len(it.Authors) > 0 && it.Authors[0] != nil {
			author = it.Authors[0].Name
		}

		articles = append(articles, RawArticle{
			URL:         it.Link,
			Title:       it.Title,
			PublishedAt: pubAt,
			RawHTML:     content,
			Author:      author,
		})
	}
	return articles, nil
}
