// Package discovery serves the discovery control surface: loop
// start/stop/status, manual scan and validate triggers, the candidate
// review queue, and the synchronous probe.
package discovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/infra/worker"
	"logistics-news/internal/repository"
	"logistics-news/internal/usecase/discover"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler bundles the discovery dependencies; individual routes hang
// off it as methods.
type Handler struct {
	Engine     *discover.Engine
	Candidates repository.CandidateRepository
	Scheduler  *worker.Scheduler
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Scheduler.Discovery())
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.SetDiscoveryEnabled(true)
	respond.JSON(w, http.StatusOK, h.Scheduler.Discovery())
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.SetDiscoveryEnabled(false)
	respond.JSON(w, http.StatusOK, h.Scheduler.Discovery())
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	if !h.Scheduler.TriggerScan() {
		respond.Error(w, http.StatusConflict, respond.CodeConflict, "scan already running or discovery stopped")
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	if !h.Scheduler.TriggerValidate() {
		respond.Error(w, http.StatusConflict, respond.CodeConflict, "validation already running or discovery stopped")
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "validation started"})
}

func (h *Handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	status := entity.CandidateStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = entity.CandidateValidated
	case entity.CandidateDiscovered, entity.CandidateValidating, entity.CandidateValidated,
		entity.CandidateApproved, entity.CandidateRejected:
	default:
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid status")
		return
	}

	offset, limit := 0, defaultPageSize
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid offset")
			return
		}
		offset = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	candidates, err := h.Candidates.List(r.Context(), status, offset, limit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if candidates == nil {
		candidates = []*entity.SourceCandidate{}
	}
	respond.JSON(w, http.StatusOK, candidates)
}

func (h *Handler) getCandidate(w http.ResponseWriter, r *http.Request) {
	candidate, err := h.Candidates.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.FromError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, candidate)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	source, err := h.Engine.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.NotFound(w, "candidate")
			return
		}
		respond.Error(w, http.StatusConflict, respond.CodeConflict, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, source)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reject(r.Context(), r.PathValue("id")); err != nil {
		respond.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "url is required")
		return
	}
	if u, err := url.Parse(body.URL); err != nil || u.Scheme == "" || u.Host == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "url must be absolute")
		return
	}

	result, err := h.Engine.Probe(r.Context(), body.URL)
	if err != nil {
		respond.Error(w, http.StatusBadGateway, respond.CodeUnavailable, "site unreachable: "+err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// Register mounts the discovery routes on the mux.
func Register(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/discovery/status", h.status)
	mux.HandleFunc("POST /api/v1/discovery/start", h.start)
	mux.HandleFunc("POST /api/v1/discovery/stop", h.stop)
	mux.HandleFunc("POST /api/v1/discovery/scan", h.scan)
	mux.HandleFunc("POST /api/v1/discovery/validate", h.validate)
	mux.HandleFunc("GET /api/v1/discovery/candidates", h.listCandidates)
	mux.HandleFunc("GET /api/v1/discovery/candidates/{id}", h.getCandidate)
	mux.HandleFunc("POST /api/v1/discovery/candidates/{id}/approve", h.approve)
	mux.HandleFunc("POST /api/v1/discovery/candidates/{id}/reject", h.reject)
	mux.HandleFunc("POST /api/v1/discovery/probe", h.probe)
}
