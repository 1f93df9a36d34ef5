// Package analytics serves aggregate views over enriched articles:
// trending topics, sentiment trend, top entities, and bulk export.
package analytics

import (
	"context"
	"fmt"
	"time"

	"logistics-news/internal/repository"
)

const (
	DefaultWindowDays = 7
	DefaultTopN       = 10
	maxWindowDays     = 90
	maxTopN           = 100
)

// Service wraps the aggregate queries with input clamping.
type Service struct {
	analytics repository.AnalyticsRepository
	articles  repository.ArticleRepository
}

// New creates a Service.
func New(analytics repository.AnalyticsRepository, articles repository.ArticleRepository) *Service {
	return &Service{analytics: analytics, articles: articles}
}

// TrendingTopics returns the most frequent topics over the window.
func (s *Service) TrendingTopics(ctx context.Context, days, limit int) ([]repository.TopicCount, error) {
	days, limit = clampWindow(days), clampLimit(limit)
	return s.analytics.TrendingTopics(ctx, since(days), limit)
}

// SentimentTrend returns per-day sentiment counts over the window.
func (s *Service) SentimentTrend(ctx context.Context, days int) ([]repository.SentimentBucket, error) {
	return s.analytics.SentimentTrend(ctx, since(clampWindow(days)))
}

// TopEntities ranks named entities of one category over the window.
func (s *Service) TopEntities(ctx context.Context, category string, days, limit int) ([]repository.EntityCount, error) {
	switch category {
	case "companies", "ports", "people", "organizations":
	default:
		return nil, fmt.Errorf("unknown entity category %q", category)
	}
	days, limit = clampWindow(days), clampLimit(limit)
	return s.analytics.TopEntities(ctx, category, since(days), limit)
}

func since(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

func clampWindow(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTopN
	}
	if limit > maxTopN {
		return maxTopN
	}
	return limit
}
