package analytics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"

	exportPageSize = 500
	exportMaxRows  = 50000
)

var csvHeader = []string{
	"id", "source_id", "title", "url", "language", "published_at",
	"fetched_at", "status", "sentiment", "urgency", "market_impact",
	"primary_topic", "transport_modes", "regions", "summary_en",
}

// Export streams articles matching the filters to w, paging through the
// store so large result sets never sit in memory at once.
func (s *Service) Export(ctx context.Context, w io.Writer, format ExportFormat, filters repository.ArticleListFilters) error {
	switch format {
	case FormatCSV:
		return s.exportCSV(ctx, w, filters)
	case FormatJSON:
		return s.exportJSON(ctx, w, filters)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func (s *Service) exportCSV(ctx context.Context, w io.Writer, filters repository.ArticleListFilters) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	err := s.eachArticle(ctx, filters, func(a *entity.Article) error {
		return cw.Write(csvRow(a))
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) exportJSON(ctx context.Context, w io.Writer, filters repository.ArticleListFilters) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	first := true
	err := s.eachArticle(ctx, filters, func(a *entity.Article) error {
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		first = false
		return enc.Encode(exportRecord(a))
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "]")
	return err
}

func (s *Service) eachArticle(ctx context.Context, filters repository.ArticleListFilters, fn func(*entity.Article) error) error {
	offset := 0
	for offset < exportMaxRows {
		page, err := s.articles.List(ctx, filters, offset, exportPageSize)
		if err != nil {
			return err
		}
		for _, a := range page {
			if err := fn(a); err != nil {
				return err
			}
		}
		if len(page) < exportPageSize {
			return nil
		}
		offset += len(page)
	}
	return nil
}

func csvRow(a *entity.Article) []string {
	modes := make([]string, len(a.Enrichment.TransportModes))
	for i, m := range a.Enrichment.TransportModes {
		modes[i] = string(m)
	}
	return []string{
		a.ID,
		a.SourceID,
		a.Title,
		a.URL,
		a.Language,
		timeOrEmpty(a.PublishedAt),
		timeOrEmpty(a.FetchedAt),
		string(a.ProcessingStatus),
		string(a.Enrichment.Sentiment),
		string(a.Enrichment.Urgency),
		string(a.Enrichment.MarketImpact),
		a.Enrichment.PrimaryTopic,
		strings.Join(modes, ";"),
		strings.Join(a.Enrichment.Regions, ";"),
		a.Enrichment.SummaryEN,
	}
}

// exportRecord trims the body fields out of the JSON export; consumers
// wanting full text use the article API.
func exportRecord(a *entity.Article) map[string]any {
	rec := map[string]any{
		"id":         a.ID,
		"source_id":  a.SourceID,
		"title":      a.Title,
		"url":        a.URL,
		"language":   a.Language,
		"status":     a.ProcessingStatus,
		"fetched_at": a.FetchedAt.UTC().Format(time.RFC3339),
		"enrichment": a.Enrichment,
	}
	if !a.PublishedAt.IsZero() {
		rec["published_at"] = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return rec
}

func timeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
