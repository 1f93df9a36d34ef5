// Package article serves the article read surface: listing, detail,
// semantic search, related lookup, and the manual enrichment trigger.
package article

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams are the 1-based pagination inputs.
type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) offset() int { return (p.Page - 1) * p.PageSize }

func parsePage(r *http.Request) (pageParams, error) {
	p := pageParams{Page: 1, PageSize: defaultPageSize}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid page %q", raw)
		}
		p.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid page_size %q", raw)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.PageSize = n
	}
	return p, nil
}

// ParseFilters builds the repository filter set from query parameters.
// Enum-valued parameters are validated; unknown values are a 400, not
// an empty result. The export endpoint shares this parser.
func ParseFilters(r *http.Request) (repository.ArticleListFilters, error) {
	var f repository.ArticleListFilters
	q := r.URL.Query()

	if v := q.Get("source_id"); v != "" {
		f.SourceID = &v
	}
	if v := q.Get("topic"); v != "" {
		f.Topic = &v
	}
	if v := q.Get("language"); v != "" {
		f.Language = &v
	}
	if v := q.Get("search"); v != "" {
		f.Search = &v
	}
	if v := q.Get("transport_mode"); v != "" {
		mode := entity.TransportMode(v)
		switch mode {
		case entity.ModeOcean, entity.ModeAir, entity.ModeRail, entity.ModeRoad, entity.ModeMultimodal:
			f.TransportMode = &mode
		default:
			return f, fmt.Errorf("invalid transport_mode %q", v)
		}
	}
	if v := q.Get("sentiment"); v != "" {
		s := entity.Sentiment(v)
		switch s {
		case entity.SentimentPositive, entity.SentimentNegative, entity.SentimentNeutral, entity.SentimentMixed:
			f.Sentiment = &s
		default:
			return f, fmt.Errorf("invalid sentiment %q", v)
		}
	}
	if v := q.Get("urgency"); v != "" {
		u := entity.Urgency(v)
		switch u {
		case entity.UrgencyBreaking, entity.UrgencyHigh, entity.UrgencyMedium, entity.UrgencyLow:
			f.Urgency = &u
		default:
			return f, fmt.Errorf("invalid urgency %q", v)
		}
	}
	if v := q.Get("status"); v != "" {
		st := entity.ProcessingStatus(v)
		switch st {
		case entity.StatusPending, entity.StatusProcessing, entity.StatusCompleted, entity.StatusFailed:
			f.Status = &st
		default:
			return f, fmt.Errorf("invalid status %q", v)
		}
	}
	if v := q.Get("from_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid from_date %q", v)
		}
		f.From = &t
	}
	if v := q.Get("to_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid to_date %q", v)
		}
		f.To = &t
	}
	return f, nil
}

// parseDate accepts a date or a full RFC 3339 timestamp.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
