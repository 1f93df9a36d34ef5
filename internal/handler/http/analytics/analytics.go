// Package analytics serves the aggregate endpoints and the bulk export.
package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	articlehandler "logistics-news/internal/handler/http/article"
	"logistics-news/internal/handler/http/respond"
	analyticsUC "logistics-news/internal/usecase/analytics"
)

type Handler struct {
	Svc *analyticsUC.Service
}

func (h *Handler) trendingTopics(w http.ResponseWriter, r *http.Request) {
	days, limit, err := windowParams(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	rows, err := h.Svc.TrendingTopics(r.Context(), days, limit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

func (h *Handler) sentimentTrend(w http.ResponseWriter, r *http.Request) {
	days, _, err := windowParams(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	rows, err := h.Svc.SentimentTrend(r.Context(), days)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

func (h *Handler) topEntities(w http.ResponseWriter, r *http.Request) {
	days, limit, err := windowParams(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	rows, err := h.Svc.TopEntities(r.Context(), r.PathValue("category"), days, limit)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

// export streams articles matching the standard list filters.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	format := analyticsUC.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = analyticsUC.FormatCSV
	}
	filters, err := articlehandler.ParseFilters(r)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}

	switch format {
	case analyticsUC.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="articles.csv"`)
	case analyticsUC.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "format must be csv or json")
		return
	}

	if err := h.Svc.Export(r.Context(), w, format, filters); err != nil {
		// The body may be partially written; nothing more we can send.
		slog.Error("export failed", slog.String("error", err.Error()))
	}
}

func windowParams(r *http.Request) (days, limit int, err error) {
	q := r.URL.Query()
	if raw := q.Get("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil || days < 1 {
			return 0, 0, errInvalid("days")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			return 0, 0, errInvalid("limit")
		}
	}
	return days, limit, nil
}

type paramError string

func (e paramError) Error() string { return "invalid " + string(e) }

func errInvalid(name string) error { return paramError(name) }

// Register mounts the analytics and export routes on the mux.
func Register(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/analytics/trending-topics", h.trendingTopics)
	mux.HandleFunc("GET /api/v1/analytics/sentiment-trend", h.sentimentTrend)
	mux.HandleFunc("GET /api/v1/analytics/top-entities/{category}", h.topEntities)
	mux.HandleFunc("GET /api/v1/export/articles", h.export)
}
