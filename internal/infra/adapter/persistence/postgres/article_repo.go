package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"

	"github.com/pgvector/pgvector-go"
)

const articleColumns = `id, source_id, url, title, body_text, body_markdown, language,
published_at, fetched_at, title_simhash, content_minhash, enrichment, embedding,
processing_status, llm_processed, created_at, updated_at`

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// Insert stores a new article. The canonical URL carries a unique
// constraint; ON CONFLICT DO NOTHING turns a duplicate into a zero-row
// insert, reported as (false, nil).
func (repo *ArticleRepo) Insert(ctx context.Context, a *entity.Article) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	enrichment, err := jsonb(a.Enrichment)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}

	const query = `
INSERT INTO articles (id, source_id, url, title, body_text, body_markdown, language,
	published_at, fetched_at, title_simhash, content_minhash, enrichment,
	processing_status, llm_processed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
ON CONFLICT (url) DO NOTHING`

	res, err := repo.db.ExecContext(ctx, query,
		a.ID, a.SourceID, a.URL, a.Title, a.BodyText, a.BodyMarkdown, a.Language,
		nullTime(a.PublishedAt), a.FetchedAt, int64(a.TitleSimHash),
		encodeMinHash(a.ContentMinHash), enrichment,
		string(a.ProcessingStatus), a.LLMProcessed,
	)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return n == 1, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id string) (*entity.Article, error) {
	const query = `
SELECT a.id, a.source_id, a.url, a.title, a.body_text, a.body_markdown, a.language,
a.published_at, a.fetched_at, a.title_simhash, a.content_minhash, a.enrichment, a.embedding,
a.processing_status, a.llm_processed, a.created_at, a.updated_at, s.name AS source_name
FROM articles a
INNER JOIN sources s ON a.source_id = s.source_id
WHERE a.id = $1
LIMIT 1`
	a, err := scanArticle(repo.db.QueryRowContext(ctx, query, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (repo *ArticleRepo) List(ctx context.Context, filters repository.ArticleListFilters, offset, limit int) ([]*entity.Article, error) {
	where, args := buildArticleWhere(filters)
	query := fmt.Sprintf(`
SELECT a.id, a.source_id, a.url, a.title, a.body_text, a.body_markdown, a.language,
a.published_at, a.fetched_at, a.title_simhash, a.content_minhash, a.enrichment, a.embedding,
a.processing_status, a.llm_processed, a.created_at, a.updated_at, s.name AS source_name
FROM articles a
INNER JOIN sources s ON a.source_id = s.source_id
%s
ORDER BY a.published_at DESC NULLS LAST, a.fetched_at DESC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows, true)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Count(ctx context.Context, filters repository.ArticleListFilters) (int64, error) {
	where, args := buildArticleWhere(filters)
	query := "SELECT COUNT(*) FROM articles a " + where
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM articles WHERE url = $1)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	return exists, nil
}

func (repo *ArticleRepo) Fingerprints(ctx context.Context) ([]repository.Fingerprint, error) {
	const query = `
SELECT id, title_simhash, content_minhash
FROM articles
ORDER BY fetched_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fps := make([]repository.Fingerprint, 0, 256)
	for rows.Next() {
		var fp repository.Fingerprint
		var simhash int64
		var minhash []byte
		if err := rows.Scan(&fp.ArticleID, &simhash, &minhash); err != nil {
			return nil, fmt.Errorf("Fingerprints: Scan: %w", err)
		}
		fp.TitleSimHash = uint64(simhash)
		fp.ContentMinHash = decodeMinHash(minhash)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// ClaimForProcessing moves an article from pending to processing. The
// conditional UPDATE makes the transition atomic across workers.
func (repo *ArticleRepo) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE articles
SET processing_status = 'processing', updated_at = now()
WHERE id = $1 AND processing_status = 'pending'`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("ClaimForProcessing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ClaimForProcessing: %w", err)
	}
	return n == 1, nil
}

func (repo *ArticleRepo) ListPending(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.Article, error) {
	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE processing_status = 'pending' AND created_at < now() - $1::interval
ORDER BY created_at ASC
LIMIT $2`
	interval := strconv.FormatInt(int64(olderThan.Seconds()), 10) + " seconds"

	rows, err := repo.db.QueryContext(ctx, query, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows, false)
		if err != nil {
			return nil, fmt.Errorf("ListPending: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) UpdateEnrichment(ctx context.Context, a *entity.Article) error {
	if err := a.ValidateCompleted(); err != nil {
		return fmt.Errorf("UpdateEnrichment: %w", err)
	}
	enrichment, err := jsonb(a.Enrichment)
	if err != nil {
		return fmt.Errorf("UpdateEnrichment: %w", err)
	}

	const query = `
UPDATE articles
SET enrichment = $2, embedding = $3, language = $4,
	processing_status = 'completed', llm_processed = TRUE,
	failure_reason = '', updated_at = now()
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		a.ID, enrichment, pgvector.NewVector(a.Embedding), a.Language)
	if err != nil {
		return fmt.Errorf("UpdateEnrichment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *ArticleRepo) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `
UPDATE articles
SET processing_status = 'failed', failure_reason = $2, updated_at = now()
WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, reason); err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) ResetToPending(ctx context.Context, id string) error {
	const query = `
UPDATE articles
SET processing_status = 'pending', updated_at = now()
WHERE id = $1 AND processing_status = 'processing'`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ResetToPending: %w", err)
	}
	return nil
}

// SearchSimilar orders completed articles by cosine distance to the
// query vector. Similarity is 1 - distance, so results are in [0, 1].
func (repo *ArticleRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]repository.SimilarArticle, error) {
	const query = `
SELECT a.id, a.source_id, a.url, a.title, a.body_text, a.body_markdown, a.language,
a.published_at, a.fetched_at, a.title_simhash, a.content_minhash, a.enrichment, a.embedding,
a.processing_status, a.llm_processed, a.created_at, a.updated_at, s.name AS source_name,
1 - (a.embedding <=> $1) AS similarity
FROM articles a
INNER JOIN sources s ON a.source_id = s.source_id
WHERE a.processing_status = 'completed' AND a.embedding IS NOT NULL
ORDER BY a.embedding <=> $1
LIMIT $2`
	return repo.querySimilar(ctx, query, pgvector.NewVector(embedding), limit)
}

// Related finds the nearest completed articles to the given article's
// stored embedding, excluding the article itself.
func (repo *ArticleRepo) Related(ctx context.Context, id string, limit int, excludeSameSource bool) ([]repository.SimilarArticle, error) {
	sameSource := ""
	if excludeSameSource {
		sameSource = " AND a.source_id <> ref.source_id"
	}
	query := `
SELECT a.id, a.source_id, a.url, a.title, a.body_text, a.body_markdown, a.language,
a.published_at, a.fetched_at, a.title_simhash, a.content_minhash, a.enrichment, a.embedding,
a.processing_status, a.llm_processed, a.created_at, a.updated_at, s.name AS source_name,
1 - (a.embedding <=> ref.embedding) AS similarity
FROM articles a
INNER JOIN sources s ON a.source_id = s.source_id
CROSS JOIN (SELECT source_id, embedding FROM articles WHERE id = $1 AND embedding IS NOT NULL) ref
WHERE a.processing_status = 'completed' AND a.embedding IS NOT NULL AND a.id <> $1` + sameSource + `
ORDER BY a.embedding <=> ref.embedding
LIMIT $2`
	return repo.querySimilar(ctx, query, id, limit)
}

func (repo *ArticleRepo) querySimilar(ctx context.Context, query string, arg any, limit int) ([]repository.SimilarArticle, error) {
	rows, err := repo.db.QueryContext(ctx, query, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarArticle, 0, limit)
	for rows.Next() {
		a, sim, err := scanSimilarArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("similarity query: %w", err)
		}
		results = append(results, repository.SimilarArticle{Article: a, Similarity: sim})
	}
	return results, rows.Err()
}

// buildArticleWhere assembles the WHERE clause for List/Count/export.
// JSONB containment checks cover the enrichment-derived filters.
func buildArticleWhere(f repository.ArticleListFilters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.SourceID != nil {
		add("a.source_id = $%d", *f.SourceID)
	}
	if f.Status != nil {
		add("a.processing_status = $%d", string(*f.Status))
	}
	if f.Urgency != nil {
		add("a.enrichment->>'urgency' = $%d", string(*f.Urgency))
	}
	if f.TransportMode != nil {
		add("a.enrichment->'transport_modes' @> to_jsonb($%d::text)", string(*f.TransportMode))
	}
	if f.Topic != nil {
		args = append(args, *f.Topic)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(a.enrichment->>'primary_topic' = $%d OR a.enrichment->'secondary_topics' @> to_jsonb($%d::text))", n, n))
	}
	if f.Region != nil {
		add("a.enrichment->'regions' @> to_jsonb($%d::text)", *f.Region)
	}
	if f.Language != nil {
		add("a.language = $%d", *f.Language)
	}
	if f.Sentiment != nil {
		add("a.enrichment->>'sentiment' = $%d", string(*f.Sentiment))
	}
	if f.Search != nil {
		// Matches the expression of the GIN index on articles.
		add("to_tsvector('english', a.title || ' ' || a.body_text) @@ plainto_tsquery('english', $%d)", *f.Search)
	}
	if f.From != nil {
		add("a.published_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.published_at <= $%d", *f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner, withSource bool) (*entity.Article, error) {
	var (
		a          entity.Article
		published  sql.NullTime
		simhash    int64
		minhash    []byte
		enrichment []byte
		hasVector  sql.Null[pgvector.Vector]
		status     string
	)
	dest := []any{
		&a.ID, &a.SourceID, &a.URL, &a.Title, &a.BodyText, &a.BodyMarkdown, &a.Language,
		&published, &a.FetchedAt, &simhash, &minhash, &enrichment, &hasVector,
		&status, &a.LLMProcessed, &a.CreatedAt, &a.UpdatedAt,
	}
	if withSource {
		dest = append(dest, &a.SourceName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.PublishedAt = timeOf(published)
	a.TitleSimHash = uint64(simhash)
	a.ContentMinHash = decodeMinHash(minhash)
	if err := scanJSONB(enrichment, &a.Enrichment); err != nil {
		return nil, err
	}
	if hasVector.Valid {
		a.Embedding = hasVector.V.Slice()
	}
	a.ProcessingStatus = entity.ProcessingStatus(status)
	return &a, nil
}

func scanSimilarArticle(rows *sql.Rows) (*entity.Article, float64, error) {
	var (
		a          entity.Article
		published  sql.NullTime
		simhash    int64
		minhash    []byte
		enrichment []byte
		hasVector  sql.Null[pgvector.Vector]
		status     string
		similarity float64
	)
	err := rows.Scan(
		&a.ID, &a.SourceID, &a.URL, &a.Title, &a.BodyText, &a.BodyMarkdown, &a.Language,
		&published, &a.FetchedAt, &simhash, &minhash, &enrichment, &hasVector,
		&status, &a.LLMProcessed, &a.CreatedAt, &a.UpdatedAt, &a.SourceName, &similarity,
	)
	if err != nil {
		return nil, 0, err
	}
	a.PublishedAt = timeOf(published)
	a.TitleSimHash = uint64(simhash)
	a.ContentMinHash = decodeMinHash(minhash)
	if err := scanJSONB(enrichment, &a.Enrichment); err != nil {
		return nil, 0, err
	}
	if hasVector.Valid {
		a.Embedding = hasVector.V.Slice()
	}
	a.ProcessingStatus = entity.ProcessingStatus(status)
	return &a, similarity, nil
}
