package entity

import "time"

// FetchStatus is the outcome of one scheduled fetch attempt.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchPartial FetchStatus = "partial"
	FetchFailed  FetchStatus = "failed"
)

// FetchLog is one append-only row per scheduled fetch attempt.
// Invariant: ArticlesFound >= ArticlesNew + ArticlesDedup.
type FetchLog struct {
	ID            int64       `json:"id"`
	SourceID      string      `json:"source_id"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   time.Time   `json:"completed_at,omitzero"`
	Status        FetchStatus `json:"status"`
	ArticlesFound int         `json:"articles_found"`
	ArticlesNew   int         `json:"articles_new"`
	ArticlesDedup int         `json:"articles_dedup"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	DurationMS    int64       `json:"duration_ms"`
}
