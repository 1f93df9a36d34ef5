package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

type APIKeyRepo struct {
	db *sql.DB
}

func NewAPIKeyRepo(db *sql.DB) repository.APIKeyRepository {
	return &APIKeyRepo{db: db}
}

func (repo *APIKeyRepo) Create(ctx context.Context, key *entity.APIKey) error {
	const query = `
INSERT INTO api_keys (id, name, key_hash, role, enabled, created_at)
VALUES ($1, $2, $3, $4, $5, now())`
	_, err := repo.db.ExecContext(ctx, query,
		key.ID, key.Name, key.KeyHash, string(key.Role), key.Enabled)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *APIKeyRepo) GetByHash(ctx context.Context, hash string) (*entity.APIKey, error) {
	const query = `
SELECT id, name, key_hash, role, enabled, created_at, last_used_at
FROM api_keys
WHERE key_hash = $1 AND enabled = TRUE
LIMIT 1`
	key, err := scanAPIKey(repo.db.QueryRowContext(ctx, query, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByHash: %w", err)
	}
	return key, nil
}

func (repo *APIKeyRepo) List(ctx context.Context) ([]*entity.APIKey, error) {
	const query = `
SELECT id, name, key_hash, role, enabled, created_at, last_used_at
FROM api_keys
ORDER BY created_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make([]*entity.APIKey, 0, 16)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (repo *APIKeyRepo) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE api_keys SET enabled = FALSE WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Revoke: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *APIKeyRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM api_keys WHERE enabled = TRUE`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *APIKeyRepo) TouchLastUsed(ctx context.Context, id string, t time.Time) error {
	const query = `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, t); err != nil {
		return fmt.Errorf("TouchLastUsed: %w", err)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*entity.APIKey, error) {
	var (
		key      entity.APIKey
		role     string
		lastUsed sql.NullTime
	)
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &role, &key.Enabled,
		&key.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	key.Role = entity.Role(role)
	key.LastUsedAt = timeOf(lastUsed)
	return &key, nil
}
