package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

const sourceColumns = `source_id, name, kind, url, language, categories,
fetch_interval_minutes, priority, enabled, api_config, scraper_config,
last_fetched_at, health_status, notes, created_at`

type SourceRepo struct {
	db *sql.DB
}

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func (repo *SourceRepo) Get(ctx context.Context, id string) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE source_id = $1 LIMIT 1`
	s, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY priority ASC, source_id ASC`
	return repo.list(ctx, query)
}

func (repo *SourceRepo) ListEnabled(ctx context.Context) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE enabled = TRUE ORDER BY priority ASC, source_id ASC`
	return repo.list(ctx, query)
}

func (repo *SourceRepo) list(ctx context.Context, query string) ([]*entity.Source, error) {
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 32)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, s *entity.Source) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	categories, apiCfg, scraperCfg, err := sourceConfigs(s)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO sources (source_id, name, kind, url, language, categories,
	fetch_interval_minutes, priority, enabled, api_config, scraper_config,
	health_status, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())`
	_, err = repo.db.ExecContext(ctx, query,
		s.SourceID, s.Name, string(s.Kind), s.URL, s.Language, categories,
		s.FetchIntervalMinutes, s.Priority, s.Enabled, apiCfg, scraperCfg,
		healthOrDefault(s.HealthStatus), s.Notes)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SourceRepo) Update(ctx context.Context, s *entity.Source) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	categories, apiCfg, scraperCfg, err := sourceConfigs(s)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE sources
SET name = $2, kind = $3, url = $4, language = $5, categories = $6,
	fetch_interval_minutes = $7, priority = $8, enabled = $9,
	api_config = $10, scraper_config = $11, notes = $12
WHERE source_id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		s.SourceID, s.Name, string(s.Kind), s.URL, s.Language, categories,
		s.FetchIntervalMinutes, s.Priority, s.Enabled, apiCfg, scraperCfg, s.Notes)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// Upsert reconciles a configured source definition. Runtime fields
// (last_fetched_at, health_status) are left untouched on update so that
// a restart does not reset health history.
func (repo *SourceRepo) Upsert(ctx context.Context, s *entity.Source) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	categories, apiCfg, scraperCfg, err := sourceConfigs(s)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	const query = `
INSERT INTO sources (source_id, name, kind, url, language, categories,
	fetch_interval_minutes, priority, enabled, api_config, scraper_config,
	health_status, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (source_id) DO UPDATE SET
	name = EXCLUDED.name,
	kind = EXCLUDED.kind,
	url = EXCLUDED.url,
	language = EXCLUDED.language,
	categories = EXCLUDED.categories,
	fetch_interval_minutes = EXCLUDED.fetch_interval_minutes,
	priority = EXCLUDED.priority,
	enabled = EXCLUDED.enabled,
	api_config = EXCLUDED.api_config,
	scraper_config = EXCLUDED.scraper_config,
	notes = EXCLUDED.notes`
	_, err = repo.db.ExecContext(ctx, query,
		s.SourceID, s.Name, string(s.Kind), s.URL, s.Language, categories,
		s.FetchIntervalMinutes, s.Priority, s.Enabled, apiCfg, scraperCfg,
		healthOrDefault(s.HealthStatus), s.Notes)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *SourceRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	const query = `UPDATE sources SET enabled = $2 WHERE source_id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("SetEnabled: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *SourceRepo) UpdateHealth(ctx context.Context, id string, status entity.HealthStatus) error {
	const query = `UPDATE sources SET health_status = $2 WHERE source_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, string(status)); err != nil {
		return fmt.Errorf("UpdateHealth: %w", err)
	}
	return nil
}

func (repo *SourceRepo) TouchFetchedAt(ctx context.Context, id string, t time.Time) error {
	const query = `UPDATE sources SET last_fetched_at = $2 WHERE source_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, t); err != nil {
		return fmt.Errorf("TouchFetchedAt: %w", err)
	}
	return nil
}

func sourceConfigs(s *entity.Source) (categories, apiCfg, scraperCfg any, err error) {
	if categories, err = jsonb(s.Categories); err != nil {
		return nil, nil, nil, err
	}
	if s.APIConfig != nil {
		if apiCfg, err = jsonb(s.APIConfig); err != nil {
			return nil, nil, nil, err
		}
	}
	if s.ScraperConfig != nil {
		if scraperCfg, err = jsonb(s.ScraperConfig); err != nil {
			return nil, nil, nil, err
		}
	}
	return categories, apiCfg, scraperCfg, nil
}

func healthOrDefault(h entity.HealthStatus) string {
	if h == "" {
		return string(entity.HealthHealthy)
	}
	return string(h)
}

func scanSource(row rowScanner) (*entity.Source, error) {
	var (
		s           entity.Source
		kind        string
		categories  []byte
		apiCfg      []byte
		scraperCfg  []byte
		lastFetched sql.NullTime
		health      string
	)
	err := row.Scan(&s.SourceID, &s.Name, &kind, &s.URL, &s.Language, &categories,
		&s.FetchIntervalMinutes, &s.Priority, &s.Enabled, &apiCfg, &scraperCfg,
		&lastFetched, &health, &s.Notes, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Kind = entity.SourceKind(kind)
	s.HealthStatus = entity.HealthStatus(health)
	s.LastFetchedAt = timeOf(lastFetched)
	if err := scanJSONB(categories, &s.Categories); err != nil {
		return nil, err
	}
	if len(apiCfg) > 0 {
		s.APIConfig = &entity.APIConfig{}
		if err := scanJSONB(apiCfg, s.APIConfig); err != nil {
			return nil, err
		}
	}
	if len(scraperCfg) > 0 {
		s.ScraperConfig = &entity.ScraperConfig{}
		if err := scanJSONB(scraperCfg, s.ScraperConfig); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
