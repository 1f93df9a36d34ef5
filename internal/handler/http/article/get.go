package article

import (
	"net/http"

	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

type GetHandler struct {
	Articles repository.ArticleRepository
}

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	article, err := h.Articles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.FromError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, article)
}
