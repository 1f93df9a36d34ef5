// Package http assembles the API router: route registration, the
// middleware chain, health reporting, and the WebSocket upgrade.
package http

import (
	"net/http"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

const healthWindow = 24 * time.Hour

// HealthHandler answers liveness probes with a store round-trip.
type HealthHandler struct {
	Sources repository.SourceRepository
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Sources.List(r.Context()); err != nil {
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "store unreachable")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SourceHealth is one row of the per-source health report.
type SourceHealth struct {
	SourceID    string              `json:"source_id"`
	Name        string              `json:"name"`
	Health      entity.HealthStatus `json:"health_status"`
	Fetches     int                 `json:"fetches"`
	Successes   int                 `json:"successes"`
	Partials    int                 `json:"partials"`
	Failures    int                 `json:"failures"`
	ArticlesNew int                 `json:"articles_new"`
	LastFetch   time.Time           `json:"last_fetch,omitzero"`
	LastError   string              `json:"last_error,omitempty"`
}

// SourceHealthHandler reports per-source fetch outcomes over the last
// 24 hours. The health field is informational and never gates fetching.
type SourceHealthHandler struct {
	Sources repository.SourceRepository
	Logs    repository.FetchLogRepository
}

func (h SourceHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Sources.List(r.Context())
	if err != nil {
		respond.Internal(w, err)
		return
	}
	logs, err := h.Logs.ListSince(r.Context(), time.Now().Add(-healthWindow))
	if err != nil {
		respond.Internal(w, err)
		return
	}

	bySource := make(map[string][]*entity.FetchLog)
	for _, l := range logs {
		bySource[l.SourceID] = append(bySource[l.SourceID], l)
	}

	report := make([]SourceHealth, 0, len(sources))
	for _, src := range sources {
		row := SourceHealth{
			SourceID: src.SourceID,
			Name:     src.Name,
			Health:   src.HealthStatus,
		}
		var lastFailure time.Time
		for _, l := range bySource[src.SourceID] {
			row.Fetches++
			row.ArticlesNew += l.ArticlesNew
			switch l.Status {
			case entity.FetchSuccess:
				row.Successes++
			case entity.FetchPartial:
				row.Partials++
			case entity.FetchFailed:
				row.Failures++
				if l.StartedAt.After(lastFailure) {
					lastFailure = l.StartedAt
					row.LastError = l.ErrorMessage
				}
			}
			if l.StartedAt.After(row.LastFetch) {
				row.LastFetch = l.StartedAt
			}
		}
		report = append(report, row)
	}
	respond.JSON(w, http.StatusOK, report)
}
