package article

import (
	"net/http"

	"logistics-news/internal/infra/llm"
	"logistics-news/internal/repository"
)

// Register mounts the article routes on the mux. The embedder may be
// nil, in which case semantic search answers 503.
func Register(mux *http.ServeMux, articles repository.ArticleRepository, embedder llm.Embedder, enqueue func(string)) {
	mux.Handle("GET /api/v1/articles", ListHandler{Articles: articles})
	mux.Handle("GET /api/v1/articles/search/semantic", SemanticSearchHandler{Articles: articles, Embedder: embedder})
	mux.Handle("GET /api/v1/articles/{id}", GetHandler{Articles: articles})
	mux.Handle("GET /api/v1/articles/{id}/related", RelatedHandler{Articles: articles})
	mux.Handle("POST /api/v1/process", ProcessHandler{Articles: articles, Enqueue: enqueue})
}
