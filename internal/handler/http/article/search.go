package article

import (
	"errors"
	"net/http"
	"strconv"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/infra/llm"
	"logistics-news/internal/repository"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// SimilarDTO is one semantic search or related-articles row.
type SimilarDTO struct {
	Article    *entity.Article `json:"article"`
	Similarity float64         `json:"similarity"`
}

// SemanticSearchHandler embeds the query text and runs a cosine
// similarity search over completed articles.
type SemanticSearchHandler struct {
	Articles repository.ArticleRepository
	Embedder llm.Embedder
}

func (h SemanticSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respond.BadRequest(w, errors.New("query parameter q is required"))
		return
	}
	limit, err := parseLimit(r, defaultSearchLimit)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	if h.Embedder == nil {
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "semantic search is not configured")
		return
	}

	embedding, err := h.Embedder.Embed(r.Context(), query)
	if err != nil {
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "embedding service unavailable")
		return
	}

	rows, err := h.Articles.SearchSimilar(r.Context(), embedding, limit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toSimilarDTOs(rows))
}

// RelatedHandler returns the nearest neighbors of one article.
type RelatedHandler struct {
	Articles repository.ArticleRepository
}

func (h RelatedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultSearchLimit)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	excludeSameSource := r.URL.Query().Get("exclude_same_source") == "true"

	rows, err := h.Articles.Related(r.Context(), r.PathValue("id"), limit, excludeSameSource)
	if err != nil {
		respond.FromError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toSimilarDTOs(rows))
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("invalid limit")
	}
	if n > maxSearchLimit {
		n = maxSearchLimit
	}
	return n, nil
}

func toSimilarDTOs(rows []repository.SimilarArticle) []SimilarDTO {
	out := make([]SimilarDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, SimilarDTO{Article: row.Article, Similarity: row.Similarity})
	}
	return out
}
