// Package subscription serves the subscription CRUD surface.
package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ListHandler struct {
	Subscriptions repository.SubscriptionRepository
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	subs, err := h.Subscriptions.List(r.Context(), offset, limit)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if subs == nil {
		subs = []*entity.Subscription{}
	}
	respond.JSON(w, http.StatusOK, subs)
}

type GetHandler struct {
	Subscriptions repository.SubscriptionRepository
}

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Subscriptions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.FromError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sub)
}

type CreateHandler struct {
	Subscriptions repository.SubscriptionRepository
}

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var sub entity.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respond.BadRequest(w, errors.New("invalid request body"))
		return
	}
	sub.ID = uuid.NewString()
	sub.Enabled = true
	sub.CreatedAt = time.Now().UTC()
	if err := sub.Validate(); err != nil {
		respond.BadRequest(w, err)
		return
	}

	if err := h.Subscriptions.Create(r.Context(), &sub); err != nil {
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, &sub)
}

type UpdateHandler struct {
	Subscriptions repository.SubscriptionRepository
}

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Subscriptions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.FromError(w, err)
		return
	}

	updated := *existing
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		respond.BadRequest(w, errors.New("invalid request body"))
		return
	}
	// Identity and creation time are immutable.
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		respond.BadRequest(w, err)
		return
	}

	if err := h.Subscriptions.Update(r.Context(), &updated); err != nil {
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, &updated)
}

type DeleteHandler struct {
	Subscriptions repository.SubscriptionRepository
}

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscriptions.Delete(r.Context(), r.PathValue("id")); err != nil {
		respond.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register mounts the subscription routes on the mux.
func Register(mux *http.ServeMux, subs repository.SubscriptionRepository) {
	mux.Handle("GET /api/v1/subscriptions", ListHandler{Subscriptions: subs})
	mux.Handle("POST /api/v1/subscriptions", CreateHandler{Subscriptions: subs})
	mux.Handle("GET /api/v1/subscriptions/{id}", GetHandler{Subscriptions: subs})
	mux.Handle("PUT /api/v1/subscriptions/{id}", UpdateHandler{Subscriptions: subs})
	mux.Handle("DELETE /api/v1/subscriptions/{id}", DeleteHandler{Subscriptions: subs})
}
