package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/fetcher"

	"github.com/PuerkitoBio/goquery"
)

const defaultMaxScraped = 20

// ScraperAdapter extracts articles from listing pages using configured
// CSS selectors, then fetches each article page for its body.
type ScraperAdapter struct {
	extractor *fetcher.Extractor
}

// NewScraperAdapter creates a ScraperAdapter backed by the given page
// extractor.
func NewScraperAdapter(extractor *fetcher.Extractor) *ScraperAdapter {
	return &ScraperAdapter{extractor: extractor}
}

// Fetch loads the source's listing page, resolves article links via the
// configured list selector, and extracts each article. Per-article
// failures are logged and skipped; the remaining articles still count.
func (a *ScraperAdapter) Fetch(ctx context.Context, source *entity.Source) ([]RawArticle, error) {
	cfg := source.ScraperConfig
	if cfg == nil || cfg.ListSelector == "" {
		return nil, fmt.Errorf("source %s: scraper source without list_selector", source.SourceID)
	}

	listHTML, err := a.extractor.FetchHTML(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listHTML))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = source.URL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = defaultMaxScraped
	}

	links := collectLinks(doc, cfg.ListSelector, baseURL, maxArticles)

	var (
		articles []RawArticle
		lastErr  error
	)
	for _, link := range links {
		raw, err := a.scrapeArticle(ctx, link, cfg)
		if err != nil {
			lastErr = err
			slog.Warn("scrape article failed",
				slog.String("source_id", source.SourceID),
				slog.String("url", link),
				slog.String("error", err.Error()))
			continue
		}
		articles = append(articles, raw)
	}

	if len(articles) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if lastErr != nil {
		return articles, fmt.Errorf("partial result: %w", lastErr)
	}
	return articles, nil
}

// scrapeArticle fetches one article page and pulls title, body and date
// through the configured selectors, falling back to readability output
// where a selector is absent or matches nothing.
func (a *ScraperAdapter) scrapeArticle(ctx context.Context, link string, cfg *entity.ScraperConfig) (RawArticle, error) {
	pageHTML, err := a.extractor.FetchHTML(ctx, link)
	if err != nil {
		return RawArticle{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return RawArticle{}, err
	}

	raw := RawArticle{URL: link, PublishedAt: time.Now()}

	if cfg.TitleSelector != "" {
		raw.Title = strings.TrimSpace(doc.Find(cfg.TitleSelector).First().Text())
	}
	if raw.Title == "" {
		raw.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if raw.Title == "" {
		raw.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if cfg.BodySelector != "" {
		sel := doc.Find(cfg.BodySelector).First()
		if html, err := sel.Html(); err == nil {
			raw.RawHTML = html
		}
		raw.RawText = strings.TrimSpace(sel.Text())
	}

	if cfg.DateSelector != "" {
		raw.PublishedAt = parseScrapedDate(doc, cfg.DateSelector, cfg.DateFormat)
	}
	return raw, nil
}

// collectLinks resolves hrefs matched by the list selector against the
// base URL, deduplicating while preserving page order.
func collectLinks(doc *goquery.Document, selector string, base *url.URL, limit int) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			// Selector may match a card wrapping the anchor.
			href, ok = s.Find("a").First().Attr("href")
		}
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return true
		}
		seen[abs] = true
		links = append(links, abs)
		return len(links) < limit
	})
	return links
}

func parseScrapedDate(doc *goquery.Document, selector, format string) time.Time {
	node := doc.Find(selector).First()
	candidates := []string{}
	if v, ok := node.Attr("datetime"); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, strings.TrimSpace(node.Text()))

	layouts := []string{time.RFC3339, "2006-01-02", "January 2, 2006", "2 January 2006"}
	if format != "" {
		layouts = append([]string{format}, layouts...)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
