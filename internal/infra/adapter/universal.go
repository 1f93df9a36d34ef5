package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/fetcher"

	"github.com/PuerkitoBio/goquery"
)

// Probe limits for sites without any configuration.
const (
	universalMaxFetches = 20
	universalMaxLinks   = 40
)

// commonFeedPaths are tried when the page advertises no feed link.
var commonFeedPaths = []string{"/feed", "/rss", "/rss.xml", "/atom.xml", "/feed.xml", "/index.xml"}

var yearSlugPattern = regexp.MustCompile(`/20\d{2}/`)

// UniversalAdapter handles sources with no configured structure. It
// first looks for a syndication feed and delegates to the feed adapter;
// failing that it falls back to heuristic link extraction plus
// readability on each candidate page.
type UniversalAdapter struct {
	feed      *FeedAdapter
	extractor *fetcher.Extractor
}

// NewUniversalAdapter creates a UniversalAdapter.
func NewUniversalAdapter(feed *FeedAdapter, extractor *fetcher.Extractor) *UniversalAdapter {
	return &UniversalAdapter{feed: feed, extractor: extractor}
}

// Fetch probes the source URL for a feed, then falls back to scanning
// the page for article-shaped links.
func (a *UniversalAdapter) Fetch(ctx context.Context, source *entity.Source) ([]RawArticle, error) {
	pageHTML, err := a.extractor.FetchHTML(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch site page: %w", err)
	}

	if feedURL := a.DiscoverFeed(ctx, source.URL, pageHTML); feedURL != "" {
		slog.Debug("universal source resolved to feed",
			slog.String("source_id", source.SourceID),
			slog.String("feed_url", feedURL))
		feedSource := *source
		feedSource.URL = feedURL
		articles, err := a.feed.Fetch(ctx, &feedSource)
		if err == nil {
			return articles, nil
		}
		slog.Warn("discovered feed fetch failed, falling back to link scan",
			slog.String("source_id", source.SourceID),
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()))
	}

	return a.fetchByLinks(ctx, source, pageHTML)
}

// DiscoverFeed returns the first working feed URL for a site page, or
// an empty string. Exported because discovery validation reuses it when
// classifying candidate sites.
func (a *UniversalAdapter) DiscoverFeed(ctx context.Context, pageURL string, pageHTML []byte) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	// Advertised feeds first.
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML)); err == nil {
		var found string
		doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			typ, _ := s.Attr("type")
			if typ != "application/rss+xml" && typ != "application/atom+xml" {
				return true
			}
			href, ok := s.Attr("href")
			if !ok || href == "" {
				return true
			}
			if ref, err := url.Parse(href); err == nil {
				found = base.ResolveReference(ref).String()
				return false
			}
			return true
		})
		if found != "" && a.feedWorks(ctx, found) {
			return found
		}
	}

	// Conventional paths next.
	for _, p := range commonFeedPaths {
		candidate := base.Scheme + "://" + base.Host + p
		if a.feedWorks(ctx, candidate) {
			return candidate
		}
	}
	return ""
}

// feedWorks reports whether the URL parses as a non-empty feed.
func (a *UniversalAdapter) feedWorks(ctx context.Context, feedURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	items, err := a.feed.doFetch(probeCtx, feedURL)
	return err == nil && len(items) > 0
}

// fetchByLinks scans the page for article-shaped links and runs
// readability extraction on each, capped to keep probes cheap.
func (a *UniversalAdapter) fetchByLinks(ctx context.Context, source *entity.Source, pageHTML []byte) ([]RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse site page: %w", err)
	}
	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}

	links := articleLinks(doc, base)

	var (
		articles []RawArticle
		lastErr  error
		fetches  int
	)
	for _, link := range links {
		if fetches >= universalMaxFetches {
			break
		}
		fetches++

		got, err := a.extractor.Extract(ctx, link)
		if err != nil {
			lastErr = err
			continue
		}
		articles = append(articles, RawArticle{
			URL:         got.FinalURL,
			Title:       got.Title,
			PublishedAt: time.Now(),
			RawText:     got.Text,
			RawHTML:     got.Markdown,
		})
	}

	if len(articles) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if lastErr != nil {
		return articles, fmt.Errorf("partial result: %w", lastErr)
	}
	return articles, nil
}

// articleLinks picks same-host anchors that look like article pages:
// path depth of at least two segments or a year slug, and not an
// obvious index or utility page.
func articleLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		u := base.ResolveReference(ref)
		if u.Host != base.Host {
			return true
		}
		if !looksLikeArticlePath(u.Path) {
			return true
		}
		abs := u.Scheme + "://" + u.Host + u.Path
		if seen[abs] {
			return true
		}
		seen[abs] = true
		links = append(links, abs)
		return len(links) < universalMaxLinks
	})
	return links
}

func looksLikeArticlePath(path string) bool {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return false
	}
	last := trimmed[strings.LastIndex(trimmed, "/")+1:]
	switch strings.ToLower(last) {
	case "index", "index.html", "about", "contact", "privacy", "terms", "login", "register", "search", "tags", "categories", "archive":
		return false
	}
	if yearSlugPattern.MatchString(path) {
		return true
	}
	return strings.Count(trimmed, "/") >= 1
}
