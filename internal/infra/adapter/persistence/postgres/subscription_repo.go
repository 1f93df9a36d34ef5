package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

const subscriptionColumns = `id, name, filter, channel, webhook_config, frequency,
enabled, created_at, updated_at`

type SubscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) repository.SubscriptionRepository {
	return &SubscriptionRepo{db: db}
}

func (repo *SubscriptionRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	filter, err := jsonb(sub.Filter)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	var webhookCfg any
	if sub.WebhookConfig != nil {
		if webhookCfg, err = jsonb(sub.WebhookConfig); err != nil {
			return fmt.Errorf("Create: %w", err)
		}
	}

	const query = `
INSERT INTO subscriptions (id, name, filter, channel, webhook_config, frequency, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err = repo.db.ExecContext(ctx, query,
		sub.ID, sub.Name, filter, string(sub.Channel), webhookCfg,
		string(sub.Frequency), sub.Enabled)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SubscriptionRepo) Get(ctx context.Context, id string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 LIMIT 1`
	sub, err := scanSubscription(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return sub, nil
}

func (repo *SubscriptionRepo) List(ctx context.Context, offset, limit int) ([]*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
FROM subscriptions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	return repo.list(ctx, query, limit, offset)
}

func (repo *SubscriptionRepo) ListActive(ctx context.Context) ([]*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE enabled = TRUE
ORDER BY created_at ASC`
	return repo.list(ctx, query)
}

func (repo *SubscriptionRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	filter, err := jsonb(sub.Filter)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	var webhookCfg any
	if sub.WebhookConfig != nil {
		if webhookCfg, err = jsonb(sub.WebhookConfig); err != nil {
			return fmt.Errorf("Update: %w", err)
		}
	}

	const query = `
UPDATE subscriptions
SET name = $2, filter = $3, channel = $4, webhook_config = $5,
	frequency = $6, enabled = $7, updated_at = now()
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.Name, filter, string(sub.Channel), webhookCfg,
		string(sub.Frequency), sub.Enabled)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM subscriptions WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *SubscriptionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Subscription, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]*entity.Subscription, 0, 16)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row rowScanner) (*entity.Subscription, error) {
	var (
		sub        entity.Subscription
		filter     []byte
		channel    string
		webhookCfg []byte
		frequency  string
	)
	err := row.Scan(&sub.ID, &sub.Name, &filter, &channel, &webhookCfg,
		&frequency, &sub.Enabled, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Channel = entity.Channel(channel)
	sub.Frequency = entity.Frequency(frequency)
	if err := scanJSONB(filter, &sub.Filter); err != nil {
		return nil, err
	}
	if len(webhookCfg) > 0 {
		sub.WebhookConfig = &entity.WebhookConfig{}
		if err := scanJSONB(webhookCfg, sub.WebhookConfig); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}
