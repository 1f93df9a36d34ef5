package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

const fetchLogColumns = `id, source_id, started_at, completed_at, status,
articles_found, articles_new, articles_dedup, error_message, duration_ms`

type FetchLogRepo struct {
	db *sql.DB
}

func NewFetchLogRepo(db *sql.DB) repository.FetchLogRepository {
	return &FetchLogRepo{db: db}
}

func (repo *FetchLogRepo) Insert(ctx context.Context, log *entity.FetchLog) error {
	const query = `
INSERT INTO fetch_logs (source_id, started_at, completed_at, status,
	articles_found, articles_new, articles_dedup, error_message, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		log.SourceID, log.StartedAt, nullTime(log.CompletedAt), string(log.Status),
		log.ArticlesFound, log.ArticlesNew, log.ArticlesDedup,
		log.ErrorMessage, log.DurationMS,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *FetchLogRepo) ListBySource(ctx context.Context, sourceID string, limit int) ([]*entity.FetchLog, error) {
	query := `SELECT ` + fetchLogColumns + `
FROM fetch_logs
WHERE source_id = $1
ORDER BY started_at DESC
LIMIT $2`
	return repo.list(ctx, query, sourceID, limit)
}

func (repo *FetchLogRepo) ListSince(ctx context.Context, since time.Time) ([]*entity.FetchLog, error) {
	query := `SELECT ` + fetchLogColumns + `
FROM fetch_logs
WHERE started_at >= $1
ORDER BY started_at DESC`
	return repo.list(ctx, query, since)
}

func (repo *FetchLogRepo) RecentBySource(ctx context.Context, sourceID string, since time.Time) ([]*entity.FetchLog, error) {
	query := `SELECT ` + fetchLogColumns + `
FROM fetch_logs
WHERE source_id = $1 AND started_at >= $2
ORDER BY started_at DESC`
	return repo.list(ctx, query, sourceID, since)
}

func (repo *FetchLogRepo) list(ctx context.Context, query string, args ...any) ([]*entity.FetchLog, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fetch logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*entity.FetchLog, 0, 32)
	for rows.Next() {
		var (
			l         entity.FetchLog
			completed sql.NullTime
			status    string
		)
		if err := rows.Scan(&l.ID, &l.SourceID, &l.StartedAt, &completed, &status,
			&l.ArticlesFound, &l.ArticlesNew, &l.ArticlesDedup,
			&l.ErrorMessage, &l.DurationMS); err != nil {
			return nil, fmt.Errorf("list fetch logs: Scan: %w", err)
		}
		l.CompletedAt = timeOf(completed)
		l.Status = entity.FetchStatus(status)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
