// Package llm provides enrichment and embedding clients for
// OpenAI-compatible and Anthropic APIs with reliability patterns.
package llm

import (
	"context"
	"errors"

	"logistics-news/internal/domain/entity"
)

// ErrInvalidResponse marks an LLM reply that failed schema or enum
// validation. The enrichment pipeline treats it as terminal for the
// article rather than retryable.
var ErrInvalidResponse = errors.New("llm response failed validation")

// Enricher produces structured enrichment for one article.
type Enricher interface {
	Enrich(ctx context.Context, title, body, language string) (*entity.Enrichment, error)
}

// Embedder produces the fixed-dimension embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
