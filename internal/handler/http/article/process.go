package article

import (
	"net/http"

	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

const processBatchLimit = 200

// ProcessHandler requeues pending articles into the enrichment
// pipeline on demand, regardless of age.
type ProcessHandler struct {
	Articles repository.ArticleRepository
	Enqueue  func(articleID string)
}

func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Articles.ListPending(r.Context(), 0, processBatchLimit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	for _, a := range pending {
		h.Enqueue(a.ID)
	}
	respond.JSON(w, http.StatusAccepted, map[string]int{"queued": len(pending)})
}
