package repository

import (
	"context"
	"time"
)

// TopicCount is one trending-topics row.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

// SentimentBucket is the per-day sentiment distribution of completed articles.
type SentimentBucket struct {
	Day      time.Time `json:"day"`
	Positive int64     `json:"positive"`
	Negative int64     `json:"negative"`
	Neutral  int64     `json:"neutral"`
	Mixed    int64     `json:"mixed"`
}

// EntityCount is one top-entities row for a single entity category.
type EntityCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// AnalyticsRepository serves aggregate queries over completed articles.
type AnalyticsRepository interface {
	TrendingTopics(ctx context.Context, since time.Time, limit int) ([]TopicCount, error)
	SentimentTrend(ctx context.Context, since time.Time) ([]SentimentBucket, error)
	// TopEntities ranks entities of one category (companies, ports,
	// people, organizations) by mention count.
	TopEntities(ctx context.Context, category string, since time.Time, limit int) ([]EntityCount, error)
}
