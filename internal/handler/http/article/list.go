package article

import (
	"net/http"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

// ListResponse is the paginated article envelope.
type ListResponse struct {
	Items    []*entity.Article `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type ListHandler struct {
	Articles repository.ArticleRepository
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	filters, err := ParseFilters(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}

	items, err := h.Articles.List(r.Context(), filters, page.offset(), page.PageSize)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	total, err := h.Articles.Count(r.Context(), filters)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if items == nil {
		items = []*entity.Article{}
	}

	respond.JSON(w, http.StatusOK, ListResponse{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}
