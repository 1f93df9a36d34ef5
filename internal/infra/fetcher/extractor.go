package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	readability "github.com/go-shiori/go-readability"
)

// Extracted is the result of fetching and cleaning one article page.
type Extracted struct {
	Title    string
	Text     string
	Markdown string
	Excerpt  string
	FinalURL string
}

// Extractor fetches article pages and produces readable text plus a
// Markdown rendition of the article body.
//
// Thread safety: Extractor is safe for concurrent use.
type Extractor struct {
	client      *http.Client
	config      Config
	mdConverter *converter.Converter
}

// NewExtractor creates an Extractor with the given configuration.
// Redirect targets are re-validated against the private-IP policy.
func NewExtractor(config Config) *Extractor {
	e := &Extractor{
		config: config,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}

	e.client = &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= e.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), e.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}
	return e
}

// Extract fetches the page at urlStr and runs readability extraction.
// The Markdown rendition comes from the extracted article HTML, not the
// raw page, so navigation and boilerplate stay out of body_markdown.
func (e *Extractor) Extract(ctx context.Context, urlStr string) (*Extracted, error) {
	if err := validateURL(urlStr, e.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	htmlBytes, finalURL, err := e.fetch(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return nil, fmt.Errorf("%w: no readable content", ErrExtractionFailed)
	}

	markdown := ""
	if article.Content != "" {
		if md, err := e.mdConverter.ConvertString(article.Content, converter.WithDomain(finalURL.String())); err == nil {
			markdown = strings.TrimSpace(md)
		}
	}

	return &Extracted{
		Title:    article.Title,
		Text:     article.TextContent,
		Markdown: markdown,
		Excerpt:  article.Excerpt,
		FinalURL: finalURL.String(),
	}, nil
}

// FetchHTML returns the raw page bytes, for callers that run their own
// selectors over the document.
func (e *Extractor) FetchHTML(ctx context.Context, urlStr string) ([]byte, error) {
	if err := validateURL(urlStr, e.config.DenyPrivateIPs); err != nil {
		return nil, err
	}
	htmlBytes, _, err := e.fetch(ctx, urlStr)
	return htmlBytes, err
}

func (e *Extractor) fetch(ctx context.Context, urlStr string) ([]byte, *url.URL, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", e.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return nil, nil, urlErr.Err
		}
		return nil, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limited := io.LimitReader(resp.Body, e.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(htmlBytes)) > e.config.MaxBodySize {
		return nil, nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, e.config.MaxBodySize)
	}

	finalURL, _ := url.Parse(urlStr)
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	return htmlBytes, finalURL, nil
}
