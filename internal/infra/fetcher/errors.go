// Package fetcher provides full-text extraction for article pages.
package fetcher

import "errors"

// Sentinel errors for content fetching operations. Callers distinguish
// failure modes to decide whether to fall back to feed-provided content.
var (
	// ErrInvalidURL indicates the URL could not be parsed or uses an unsupported scheme
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the hostname resolves to a private address (SSRF prevention)
	ErrPrivateIP = errors.New("private IP access denied")

	// ErrTooManyRedirects indicates the redirect limit was exceeded
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response exceeded the configured size limit
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrExtractionFailed indicates readability found no usable article content
	ErrExtractionFailed = errors.New("content extraction failed")
)
