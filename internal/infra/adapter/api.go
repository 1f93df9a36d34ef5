package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/resilience/retry"
)

const (
	defaultMaxPages = 10
	defaultPageSize = 50
)

// APIAdapter fetches articles from JSON HTTP APIs described entirely by
// source configuration: auth scheme, pagination style, and a dot-path
// field mapping from response items to RawArticle fields.
type APIAdapter struct {
	client      *http.Client
	userAgent   string
	retryConfig retry.Config
}

// NewAPIAdapter creates an APIAdapter with the given HTTP client.
func NewAPIAdapter(client *http.Client, userAgent string) *APIAdapter {
	return &APIAdapter{
		client:      client,
		userAgent:   userAgent,
		retryConfig: retry.AdapterFetchConfig(),
	}
}

// Fetch walks the API's pages and maps every item into a RawArticle.
// Items the mapping cannot resolve a URL for are skipped and logged; a
// page-level fetch error after the first page returns the articles
// gathered so far together with the error.
func (a *APIAdapter) Fetch(ctx context.Context, source *entity.Source) ([]RawArticle, error) {
	cfg := source.APIConfig
	if cfg == nil {
		return nil, fmt.Errorf("source %s: api source without api_config", source.SourceID)
	}

	authValue, err := resolveAuthValue(cfg.AuthValue)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.SourceID, err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var articles []RawArticle
	cursor := ""
	for page := 0; page < maxPages; page++ {
		reqURL, err := a.pageURL(source.URL, cfg, authValue, page, pageSize, cursor, len(articles))
		if err != nil {
			return articles, err
		}

		body, err := a.fetchPage(ctx, reqURL, cfg, authValue)
		if err != nil {
			if page > 0 {
				return articles, fmt.Errorf("page %d: %w", page, err)
			}
			return nil, err
		}

		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			return articles, fmt.Errorf("decode response: %w", err)
		}

		items := itemsAt(doc, cfg.ItemsPath)
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			raw, ok := a.mapItem(item, cfg.Mapping)
			if !ok {
				slog.Debug("api item skipped, no resolvable url",
					slog.String("source_id", source.SourceID))
				continue
			}
			articles = append(articles, raw)
		}

		if cfg.PaginationType == entity.PageNone || cfg.PaginationType == "" {
			break
		}
		if cfg.PaginationType == entity.PageCursor {
			cursor, _ = lookupString(doc, cfg.PaginationParam)
			if cursor == "" {
				break
			}
		}
		if len(items) < pageSize {
			break
		}
	}
	return articles, nil
}

// pageURL builds the request URL for one page, applying query-string
// auth and the configured pagination parameter.
func (a *APIAdapter) pageURL(base string, cfg *entity.APIConfig, authValue string, page, pageSize int, cursor string, fetched int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()

	if cfg.AuthType == entity.AuthAPIKeyQuery && cfg.AuthKey != "" {
		q.Set(cfg.AuthKey, authValue)
	}

	switch cfg.PaginationType {
	case entity.PageNumber:
		// Page numbering is 1-based on every API seen so far.
		q.Set(paramOr(cfg.PaginationParam, "page"), strconv.Itoa(page+1))
		if cfg.PageSizeParam != "" {
			q.Set(cfg.PageSizeParam, strconv.Itoa(pageSize))
		}
	case entity.PageOffset:
		q.Set(paramOr(cfg.PaginationParam, "offset"), strconv.Itoa(fetched))
		if cfg.PageSizeParam != "" {
			q.Set(cfg.PageSizeParam, strconv.Itoa(pageSize))
		}
	case entity.PageCursor:
		if cursor != "" {
			q.Set(paramOr(cfg.PaginationParam, "cursor"), cursor)
		}
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *APIAdapter) fetchPage(ctx context.Context, reqURL string, cfg *entity.APIConfig, authValue string) ([]byte, error) {
	var body []byte
	err := retry.WithBackoff(ctx, a.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", a.userAgent)
		req.Header.Set("Accept", "application/json")

		switch cfg.AuthType {
		case entity.AuthAPIKeyHeader:
			req.Header.Set(paramOr(cfg.AuthKey, "X-API-Key"), authValue)
		case entity.AuthBearer:
			req.Header.Set("Authorization", "Bearer "+authValue)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}

// mapItem resolves the configured dot paths against one response item.
// An item without a URL is unusable and reported with ok=false.
func (a *APIAdapter) mapItem(item any, m entity.APIFieldMapping) (RawArticle, bool) {
	urlStr, _ := lookupString(item, m.URL)
	if urlStr == "" {
		return RawArticle{}, false
	}

	raw := RawArticle{URL: urlStr}
	raw.Title, _ = lookupString(item, m.Title)
	raw.RawText, _ = lookupString(item, m.BodyText)
	raw.RawHTML, _ = lookupString(item, m.BodyHTML)
	raw.Author, _ = lookupString(item, m.Author)
	raw.Language, _ = lookupString(item, m.Language)

	if s, ok := lookupString(item, m.PublishedAt); ok {
		raw.PublishedAt = parseAPITime(s)
	}
	if raw.PublishedAt.IsZero() {
		raw.PublishedAt = time.Now()
	}
	return raw, true
}

// resolveAuthValue expands "$NAME" references from the environment so
// secrets stay out of stored source configs.
func resolveAuthValue(v string) (string, error) {
	if !strings.HasPrefix(v, "$") {
		return v, nil
	}
	name := strings.TrimPrefix(v, "$")
	resolved := os.Getenv(name)
	if resolved == "" {
		return "", fmt.Errorf("auth env var %s is not set", name)
	}
	return resolved, nil
}

func paramOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// itemsAt walks a dot path into the decoded document and returns the
// array found there. An empty path means the document root is the array.
func itemsAt(doc any, path string) []any {
	node := lookup(doc, path)
	arr, _ := node.([]any)
	return arr
}

// lookup resolves a dot-separated path against decoded JSON. Path
// segments index into objects only; arrays terminate the walk.
func lookup(doc any, path string) any {
	if path == "" {
		return doc
	}
	node := doc
	for _, seg := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[seg]
		if !ok {
			return nil
		}
	}
	return node
}

func lookupString(doc any, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	switch v := lookup(doc, path).(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// parseAPITime tries the timestamp layouts seen across news APIs.
func parseAPITime(s string) time.Time {
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	// Unix seconds as a bare number.
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 1_000_000_000 {
		return time.Unix(sec, 0)
	}
	return time.Time{}
}
