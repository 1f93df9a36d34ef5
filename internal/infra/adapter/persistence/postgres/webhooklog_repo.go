package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

type WebhookLogRepo struct {
	db *sql.DB
}

func NewWebhookLogRepo(db *sql.DB) repository.WebhookLogRepository {
	return &WebhookLogRepo{db: db}
}

func (repo *WebhookLogRepo) Insert(ctx context.Context, d *entity.WebhookDelivery) error {
	const query = `
INSERT INTO webhook_deliveries (id, subscription_id, article_id, attempt, status, http_status, error, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`
	_, err := repo.db.ExecContext(ctx, query,
		d.ID, d.SubscriptionID, d.ArticleID, d.Attempt, string(d.Status),
		d.HTTPStatus, d.Error, d.DurationMS)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *WebhookLogRepo) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*entity.WebhookDelivery, error) {
	const query = `
SELECT id, subscription_id, article_id, attempt, status, http_status, error, duration_ms, created_at
FROM webhook_deliveries
WHERE subscription_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListBySubscription: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deliveries := make([]*entity.WebhookDelivery, 0, limit)
	for rows.Next() {
		var (
			d      entity.WebhookDelivery
			status string
		)
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.ArticleID, &d.Attempt,
			&status, &d.HTTPStatus, &d.Error, &d.DurationMS, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListBySubscription: Scan: %w", err)
		}
		d.Status = entity.DeliveryStatus(status)
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}
