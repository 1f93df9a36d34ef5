// Package search provides web search clients used by the discovery
// loop to find candidate source sites.
package search

import "context"

// Engine runs one query and returns result URLs in rank order.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]string, error)
}
