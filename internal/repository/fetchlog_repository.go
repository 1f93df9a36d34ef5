package repository

import (
	"context"
	"time"

	"logistics-news/internal/domain/entity"
)

type FetchLogRepository interface {
	Insert(ctx context.Context, log *entity.FetchLog) error
	// ListBySource returns the most recent fetch logs for one source,
	// newest first.
	ListBySource(ctx context.Context, sourceID string, limit int) ([]*entity.FetchLog, error)
	// ListSince returns all fetch logs started after the given time,
	// across sources, for the health report.
	ListSince(ctx context.Context, since time.Time) ([]*entity.FetchLog, error)
	// RecentBySource returns logs for one source started after the given
	// time, used by health evaluation.
	RecentBySource(ctx context.Context, sourceID string, since time.Time) ([]*entity.FetchLog, error)
}
