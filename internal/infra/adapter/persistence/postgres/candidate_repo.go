package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/fingerprint"
	"logistics-news/internal/repository"
)

const candidateColumns = `id, url, domain, name, feed_url, kind, language, categories,
discovered_via, discovery_query, status, quality_score, relevance_score, combined_score,
sample_articles, validation_details, error_message, auto_approved, created_at, validated_at`

type CandidateRepo struct {
	db *sql.DB
}

func NewCandidateRepo(db *sql.DB) repository.CandidateRepository {
	return &CandidateRepo{db: db}
}

// Insert stores a candidate keyed by its domain. A known domain, whatever
// its lifecycle status, is reported as (false, nil) so discovery never
// re-raises a previously rejected site.
func (repo *CandidateRepo) Insert(ctx context.Context, c *entity.SourceCandidate) (bool, error) {
	categories, err := jsonb(c.Categories)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	samples, err := jsonb(c.Samples)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	details, err := jsonb(c.Details)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}

	const query = `
INSERT INTO source_candidates (id, url, domain, name, feed_url, kind, language, categories,
	discovered_via, discovery_query, status, quality_score, relevance_score, combined_score,
	sample_articles, validation_details, error_message, auto_approved, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now())
ON CONFLICT (domain) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		c.ID, c.URL, fingerprint.Domain(c.URL), c.Name, c.FeedURL, string(c.Kind),
		c.Language, categories, c.DiscoveredVia, c.DiscoveryQuery, string(c.Status),
		c.QualityScore, c.RelevanceScore, c.CombinedScore,
		samples, details, c.ErrorMessage, c.AutoApproved)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return n == 1, nil
}

func (repo *CandidateRepo) Get(ctx context.Context, id string) (*entity.SourceCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM source_candidates WHERE id = $1 LIMIT 1`
	c, err := scanCandidate(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (repo *CandidateRepo) List(ctx context.Context, status entity.CandidateStatus, offset, limit int) ([]*entity.SourceCandidate, error) {
	var (
		query string
		args  []any
	)
	if status == "" {
		query = `SELECT ` + candidateColumns + `
FROM source_candidates
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	} else {
		query = `SELECT ` + candidateColumns + `
FROM source_candidates
WHERE status = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
		args = []any{string(status), limit, offset}
	}
	return repo.list(ctx, query, args...)
}

func (repo *CandidateRepo) ListDiscovered(ctx context.Context, limit int) ([]*entity.SourceCandidate, error) {
	query := `SELECT ` + candidateColumns + `
FROM source_candidates
WHERE status = 'discovered'
ORDER BY created_at ASC
LIMIT $1`
	return repo.list(ctx, query, limit)
}

func (repo *CandidateRepo) Update(ctx context.Context, c *entity.SourceCandidate) error {
	categories, err := jsonb(c.Categories)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	samples, err := jsonb(c.Samples)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	details, err := jsonb(c.Details)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE source_candidates
SET name = $2, feed_url = $3, kind = $4, language = $5, categories = $6,
	status = $7, quality_score = $8, relevance_score = $9, combined_score = $10,
	sample_articles = $11, validation_details = $12, error_message = $13,
	auto_approved = $14, validated_at = $15
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		c.ID, c.Name, c.FeedURL, string(c.Kind), c.Language, categories,
		string(c.Status), c.QualityScore, c.RelevanceScore, c.CombinedScore,
		samples, details, c.ErrorMessage, c.AutoApproved, nullTime(c.ValidatedAt))
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *CandidateRepo) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM source_candidates WHERE domain = $1)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, domain).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByDomain: %w", err)
	}
	return exists, nil
}

func (repo *CandidateRepo) list(ctx context.Context, query string, args ...any) ([]*entity.SourceCandidate, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]*entity.SourceCandidate, 0, 32)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func scanCandidate(row rowScanner) (*entity.SourceCandidate, error) {
	var (
		c          entity.SourceCandidate
		domain     string
		kind       string
		status     string
		categories []byte
		samples    []byte
		details    []byte
		validated  sql.NullTime
	)
	err := row.Scan(&c.ID, &c.URL, &domain, &c.Name, &c.FeedURL, &kind, &c.Language,
		&categories, &c.DiscoveredVia, &c.DiscoveryQuery, &status,
		&c.QualityScore, &c.RelevanceScore, &c.CombinedScore,
		&samples, &details, &c.ErrorMessage, &c.AutoApproved, &c.CreatedAt, &validated)
	if err != nil {
		return nil, err
	}
	c.Kind = entity.SourceKind(kind)
	c.Status = entity.CandidateStatus(status)
	c.ValidatedAt = timeOf(validated)
	if err := scanJSONB(categories, &c.Categories); err != nil {
		return nil, err
	}
	if err := scanJSONB(samples, &c.Samples); err != nil {
		return nil, err
	}
	if err := scanJSONB(details, &c.Details); err != nil {
		return nil, err
	}
	return &c, nil
}
