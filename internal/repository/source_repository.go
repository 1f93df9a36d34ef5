package repository

import (
	"context"
	"time"

	"logistics-news/internal/domain/entity"
)

type SourceRepository interface {
	Get(ctx context.Context, id string) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListEnabled(ctx context.Context) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	// Upsert reconciles a source definition loaded from configuration,
	// inserting or updating by ID while preserving runtime health fields.
	Upsert(ctx context.Context, source *entity.Source) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	UpdateHealth(ctx context.Context, id string, status entity.HealthStatus) error
	TouchFetchedAt(ctx context.Context, id string, t time.Time) error
}
