package repository

import (
	"context"

	"logistics-news/internal/domain/entity"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	Get(ctx context.Context, id string) (*entity.Subscription, error)
	List(ctx context.Context, offset, limit int) ([]*entity.Subscription, error)
	// ListActive returns every active subscription. The dispatcher
	// evaluates the full set against each completed article.
	ListActive(ctx context.Context) ([]*entity.Subscription, error)
	Update(ctx context.Context, sub *entity.Subscription) error
	Delete(ctx context.Context, id string) error
}
