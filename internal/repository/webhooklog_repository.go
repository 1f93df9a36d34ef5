package repository

import (
	"context"

	"logistics-news/internal/domain/entity"
)

type WebhookLogRepository interface {
	Insert(ctx context.Context, delivery *entity.WebhookDelivery) error
	// ListBySubscription returns recent delivery attempts for one
	// subscription, newest first.
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*entity.WebhookDelivery, error)
}
