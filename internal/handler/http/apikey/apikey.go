// Package apikey serves the admin key-management surface. Creation
// returns the cleartext exactly once; listings only ever show metadata.
package apikey

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/handler/http/respond"
	"logistics-news/internal/repository"
)

// Invalidator lets key mutations drop the authenticator's cached
// open-mode state.
type Invalidator interface {
	Invalidate()
}

type CreateHandler struct {
	Keys repository.APIKeyRepository
	Auth Invalidator
}

// createResponse carries the one-time cleartext alongside the stored row.
type createResponse struct {
	*entity.APIKey
	Key string `json:"key"`
}

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string      `json:"name"`
		Role entity.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		respond.BadRequest(w, errors.New("name is required"))
		return
	}
	switch body.Role {
	case "":
		body.Role = entity.RoleReader
	case entity.RoleAdmin, entity.RoleReader, entity.RoleSubscriber:
	default:
		respond.BadRequest(w, errors.New("role must be admin, reader or subscriber"))
		return
	}

	cleartext, err := entity.GenerateAPIKey()
	if err != nil {
		respond.Internal(w, err)
		return
	}
	key := &entity.APIKey{
		ID:        uuid.NewString(),
		Name:      body.Name,
		KeyHash:   entity.HashAPIKey(cleartext),
		Role:      body.Role,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Keys.Create(r.Context(), key); err != nil {
		respond.Internal(w, err)
		return
	}
	if h.Auth != nil {
		h.Auth.Invalidate()
	}

	respond.JSON(w, http.StatusCreated, createResponse{APIKey: key, Key: cleartext})
}

type ListHandler struct {
	Keys repository.APIKeyRepository
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Keys.List(r.Context())
	if err != nil {
		respond.Internal(w, err)
		return
	}
	if keys == nil {
		keys = []*entity.APIKey{}
	}
	respond.JSON(w, http.StatusOK, keys)
}

type RevokeHandler struct {
	Keys repository.APIKeyRepository
	Auth Invalidator
}

func (h RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Keys.Revoke(r.Context(), r.PathValue("id")); err != nil {
		respond.FromError(w, err)
		return
	}
	if h.Auth != nil {
		h.Auth.Invalidate()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register mounts the key-management routes behind the admin gate.
func Register(mux *http.ServeMux, keys repository.APIKeyRepository, admin func(http.Handler) http.Handler, inv Invalidator) {
	mux.Handle("POST /api/v1/api-keys", admin(CreateHandler{Keys: keys, Auth: inv}))
	mux.Handle("GET /api/v1/api-keys", admin(ListHandler{Keys: keys}))
	mux.Handle("DELETE /api/v1/api-keys/{id}", admin(RevokeHandler{Keys: keys, Auth: inv}))
}
