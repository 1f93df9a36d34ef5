package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"logistics-news/internal/repository"
)

type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) repository.AnalyticsRepository {
	return &AnalyticsRepo{db: db}
}

func (repo *AnalyticsRepo) TrendingTopics(ctx context.Context, since time.Time, limit int) ([]repository.TopicCount, error) {
	const query = `
SELECT enrichment->>'primary_topic' AS topic, COUNT(*) AS cnt
FROM articles
WHERE processing_status = 'completed'
	AND fetched_at >= $1
	AND enrichment->>'primary_topic' IS NOT NULL
	AND enrichment->>'primary_topic' <> ''
GROUP BY topic
ORDER BY cnt DESC, topic ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("TrendingTopics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	topics := make([]repository.TopicCount, 0, limit)
	for rows.Next() {
		var tc repository.TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, fmt.Errorf("TrendingTopics: Scan: %w", err)
		}
		topics = append(topics, tc)
	}
	return topics, rows.Err()
}

func (repo *AnalyticsRepo) SentimentTrend(ctx context.Context, since time.Time) ([]repository.SentimentBucket, error) {
	const query = `
SELECT date_trunc('day', fetched_at) AS day,
	COUNT(*) FILTER (WHERE enrichment->>'sentiment' = 'positive'),
	COUNT(*) FILTER (WHERE enrichment->>'sentiment' = 'negative'),
	COUNT(*) FILTER (WHERE enrichment->>'sentiment' = 'neutral'),
	COUNT(*) FILTER (WHERE enrichment->>'sentiment' = 'mixed')
FROM articles
WHERE processing_status = 'completed' AND fetched_at >= $1
GROUP BY day
ORDER BY day ASC`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("SentimentTrend: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make([]repository.SentimentBucket, 0, 32)
	for rows.Next() {
		var b repository.SentimentBucket
		if err := rows.Scan(&b.Day, &b.Positive, &b.Negative, &b.Neutral, &b.Mixed); err != nil {
			return nil, fmt.Errorf("SentimentTrend: Scan: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// TopEntities unrolls one JSONB entity array (companies, ports, people or
// organizations) and ranks names by mention count.
func (repo *AnalyticsRepo) TopEntities(ctx context.Context, category string, since time.Time, limit int) ([]repository.EntityCount, error) {
	switch category {
	case "companies", "ports", "people", "organizations":
	default:
		return nil, fmt.Errorf("TopEntities: unknown category %q", category)
	}

	// category is restricted to the allow-list above.
	query := fmt.Sprintf(`
SELECT name, COUNT(*) AS cnt
FROM articles, jsonb_array_elements_text(enrichment->'entities'->'%s') AS name
WHERE processing_status = 'completed' AND fetched_at >= $1
GROUP BY name
ORDER BY cnt DESC, name ASC
LIMIT $2`, category)

	rows, err := repo.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("TopEntities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entities := make([]repository.EntityCount, 0, limit)
	for rows.Next() {
		var ec repository.EntityCount
		if err := rows.Scan(&ec.Name, &ec.Count); err != nil {
			return nil, fmt.Errorf("TopEntities: Scan: %w", err)
		}
		entities = append(entities, ec)
	}
	return entities, rows.Err()
}
