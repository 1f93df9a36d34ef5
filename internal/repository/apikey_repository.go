package repository

import (
	"context"
	"time"

	"logistics-news/internal/domain/entity"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	// GetByHash looks up an active key by its SHA-256 hash.
	GetByHash(ctx context.Context, hash string) (*entity.APIKey, error)
	List(ctx context.Context) ([]*entity.APIKey, error)
	Revoke(ctx context.Context, id string) error
	// Count returns the number of active keys. Authentication is open
	// when no keys exist.
	Count(ctx context.Context) (int64, error)
	TouchLastUsed(ctx context.Context, id string, t time.Time) error
}
