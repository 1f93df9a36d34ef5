// Package source serves the source read surface and its fetch history.
package source

import (
	"net/http"
	"strconv"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

const defaultLogLimit = 50

type ListHandler struct {
	Sources repository.SourceRepository
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Sources.List(r.Context())
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if sources == nil {
		sources = []*entity.Source{}
	}
	respond.JSON(w, http.StatusOK, sources)
}

type GetHandler struct {
	Sources repository.SourceRepository
}

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source, err := h.Sources.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.FromError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, source)
}

// FetchLogsHandler returns the recent fetch history of one source,
// newest first.
type FetchLogsHandler struct {
	Sources repository.SourceRepository
	Logs    repository.FetchLogRepository
}

func (h FetchLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Sources.Get(r.Context(), id); err != nil {
		respond.FromError(w, err)
		return
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.Logs.ListBySource(r.Context(), id, limit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if logs == nil {
		logs = []*entity.FetchLog{}
	}
	respond.JSON(w, http.StatusOK, logs)
}

// Register mounts the source routes on the mux.
func Register(mux *http.ServeMux, sources repository.SourceRepository, logs repository.FetchLogRepository) {
	mux.Handle("GET /api/v1/sources", ListHandler{Sources: sources})
	mux.Handle("GET /api/v1/sources/{id}", GetHandler{Sources: sources})
	mux.Handle("GET /api/v1/sources/{id}/fetch-logs", FetchLogsHandler{Sources: sources, Logs: logs})
}
