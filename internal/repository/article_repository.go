package repository

import (
	"context"
	"time"

	"logistics-news/internal/domain/entity"
)

// ArticleListFilters contains optional filters for article listing and export.
// Nil fields are ignored; set fields combine with AND.
type ArticleListFilters struct {
	SourceID      *string
	Status        *entity.ProcessingStatus
	Urgency       *entity.Urgency
	TransportMode *entity.TransportMode
	Topic         *string
	Region        *string
	Language      *string
	Sentiment     *entity.Sentiment
	Search        *string
	From          *time.Time
	To            *time.Time
}

// SimilarArticle is one row of a vector similarity search result.
// Similarity is cosine similarity in [0, 1].
type SimilarArticle struct {
	Article    *entity.Article
	Similarity float64
}

// Fingerprint carries the persisted dedup fingerprints of one article,
// used to warm the in-memory near-duplicate indexes on startup.
type Fingerprint struct {
	ArticleID      string
	TitleSimHash   uint64
	ContentMinHash []uint64
}

type ArticleRepository interface {
	// Insert stores a new article keyed by its canonical URL.
	// Returns false with no error when an article with the same URL
	// already exists; the caller treats that as a duplicate, not a failure.
	Insert(ctx context.Context, article *entity.Article) (bool, error)
	Get(ctx context.Context, id string) (*entity.Article, error)
	List(ctx context.Context, filters ArticleListFilters, offset, limit int) ([]*entity.Article, error)
	Count(ctx context.Context, filters ArticleListFilters) (int64, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// Fingerprints returns the dedup fingerprints of every stored article,
	// newest first. The SimHash and LSH indexes are rebuilt from this on
	// startup.
	Fingerprints(ctx context.Context) ([]Fingerprint, error)
	// ClaimForProcessing atomically moves an article from pending to
	// processing. Returns false when the article was not in pending state,
	// which means another worker already claimed it.
	ClaimForProcessing(ctx context.Context, id string) (bool, error)
	// ListPending returns pending articles older than the given age,
	// oldest first. The backstop sweep uses this to requeue stuck work.
	ListPending(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.Article, error)
	// UpdateEnrichment persists enrichment results, the embedding vector,
	// and the completed status in one statement.
	UpdateEnrichment(ctx context.Context, article *entity.Article) error
	// MarkFailed records a terminal enrichment failure with its reason.
	MarkFailed(ctx context.Context, id, reason string) error
	// ResetToPending returns a processing article to the pending queue.
	ResetToPending(ctx context.Context, id string) error
	// SearchSimilar runs a cosine similarity search over completed
	// articles, ordered by descending similarity.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]SimilarArticle, error)
	// Related finds completed articles nearest to the given article's own
	// embedding, excluding the article itself and, optionally, its source.
	Related(ctx context.Context, id string, limit int, excludeSameSource bool) ([]SimilarArticle, error)
}
