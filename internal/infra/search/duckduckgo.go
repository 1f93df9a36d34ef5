package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"logistics-news/internal/resilience/circuitbreaker"
	"logistics-news/internal/resilience/retry"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page. It needs no credentials,
// which makes it the default discovery engine.
type DuckDuckGo struct {
	client         *http.Client
	userAgent      string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	endpoint       string
}

// NewDuckDuckGo creates a client.
func NewDuckDuckGo(client *http.Client, userAgent string) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &DuckDuckGo{
		client:         client,
		userAgent:      userAgent,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DiscoverySearchConfig("duckduckgo")),
		retryConfig:    retry.DiscoveryConfig(),
		endpoint:       ddgEndpoint,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search runs one query against the HTML results page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var results []string
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		result, err := d.circuitBreaker.Execute(func() (any, error) {
			return d.doSearch(ctx, query, limit)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("search circuit breaker open, query rejected",
					slog.String("engine", "duckduckgo"),
					slog.String("state", d.circuitBreaker.State().String()))
			}
			return err
		}
		results = result.([]string)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return results, nil
}

func (d *DuckDuckGo) doSearch(ctx context.Context, query string, limit int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveDDGLink(href); resolved != "" {
			results = append(results, resolved)
		}
		return len(results) < limit
	})
	return results, nil
}

// resolveDDGLink unwraps the uddg redirect parameter the results page
// wraps every outbound link in.
func resolveDDGLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if wrapped := u.Query().Get("uddg"); wrapped != "" {
		if target, err := url.QueryUnescape(wrapped); err == nil {
			return target
		}
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}
