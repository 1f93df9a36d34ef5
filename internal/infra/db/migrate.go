package db

import "database/sql"

// MigrateUp bootstraps the schema. Every statement is idempotent, so the
// function is safe to run on each startup.
func MigrateUp(pool *sql.DB) error {
	// pgvector is required for the embedding column; the statement fails
	// only when the extension is missing from the server image.
	if _, err := pool.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    source_id              TEXT PRIMARY KEY,
    name                   TEXT NOT NULL,
    kind                   VARCHAR(20) NOT NULL,
    url                    TEXT NOT NULL,
    language               VARCHAR(8) NOT NULL DEFAULT 'en',
    categories             JSONB NOT NULL DEFAULT '[]',
    fetch_interval_minutes INT NOT NULL DEFAULT 60,
    priority               INT NOT NULL DEFAULT 3,
    enabled                BOOLEAN NOT NULL DEFAULT TRUE,
    api_config             JSONB,
    scraper_config         JSONB,
    last_fetched_at        TIMESTAMPTZ,
    health_status          VARCHAR(16) NOT NULL DEFAULT 'healthy',
    notes                  TEXT NOT NULL DEFAULT '',
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                UUID PRIMARY KEY,
    source_id         TEXT NOT NULL REFERENCES sources(source_id),
    url               TEXT NOT NULL UNIQUE,
    title             TEXT NOT NULL,
    body_text         TEXT NOT NULL DEFAULT '',
    body_markdown     TEXT NOT NULL DEFAULT '',
    language          VARCHAR(8) NOT NULL DEFAULT 'en',
    published_at      TIMESTAMPTZ,
    fetched_at        TIMESTAMPTZ NOT NULL,
    title_simhash     BIGINT NOT NULL DEFAULT 0,
    content_minhash   BYTEA,
    enrichment        JSONB,
    embedding         vector(1024),
    processing_status VARCHAR(16) NOT NULL DEFAULT 'pending',
    failure_reason    TEXT NOT NULL DEFAULT '',
    llm_processed     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS fetch_logs (
    id             BIGSERIAL PRIMARY KEY,
    source_id      TEXT NOT NULL REFERENCES sources(source_id),
    started_at     TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ,
    status         VARCHAR(16) NOT NULL,
    articles_found INT NOT NULL DEFAULT 0,
    articles_new   INT NOT NULL DEFAULT 0,
    articles_dedup INT NOT NULL DEFAULT 0,
    error_message  TEXT NOT NULL DEFAULT '',
    duration_ms    BIGINT NOT NULL DEFAULT 0
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS source_candidates (
    id                 UUID PRIMARY KEY,
    url                TEXT NOT NULL,
    domain             TEXT NOT NULL UNIQUE,
    name               TEXT NOT NULL DEFAULT '',
    feed_url           TEXT NOT NULL DEFAULT '',
    kind               VARCHAR(20) NOT NULL DEFAULT '',
    language           VARCHAR(8) NOT NULL DEFAULT '',
    categories         JSONB NOT NULL DEFAULT '[]',
    discovered_via     TEXT NOT NULL,
    discovery_query    TEXT NOT NULL DEFAULT '',
    status             VARCHAR(16) NOT NULL DEFAULT 'discovered',
    quality_score      INT NOT NULL DEFAULT 0,
    relevance_score    INT NOT NULL DEFAULT 0,
    combined_score     INT NOT NULL DEFAULT 0,
    sample_articles    JSONB NOT NULL DEFAULT '[]',
    validation_details JSONB NOT NULL DEFAULT '{}',
    error_message      TEXT NOT NULL DEFAULT '',
    auto_approved      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    validated_at       TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    id             UUID PRIMARY KEY,
    name           TEXT NOT NULL,
    filter         JSONB NOT NULL DEFAULT '{}',
    channel        VARCHAR(16) NOT NULL,
    webhook_config JSONB,
    frequency      VARCHAR(16) NOT NULL DEFAULT 'realtime',
    enabled        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              UUID PRIMARY KEY,
    subscription_id UUID NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
    article_id      UUID NOT NULL,
    attempt         INT NOT NULL,
    status          VARCHAR(16) NOT NULL,
    http_status     INT NOT NULL DEFAULT 0,
    error           TEXT NOT NULL DEFAULT '',
    duration_ms     BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := pool.Exec(`
CREATE TABLE IF NOT EXISTS api_keys (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL,
    key_hash     VARCHAR(64) NOT NULL UNIQUE,
    role         VARCHAR(16) NOT NULL DEFAULT 'reader',
    enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_used_at TIMESTAMPTZ
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_fetched_at ON articles(fetched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(processing_status)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_enrichment_gin ON articles USING gin(enrichment)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_fts ON articles
    USING gin(to_tsvector('english', title || ' ' || body_text))`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_logs_source_started ON fetch_logs(source_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_logs_started_at ON fetch_logs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_status ON source_candidates(status)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_sub ON webhook_deliveries(subscription_id, created_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(idx); err != nil {
			return err
		}
	}

	// HNSW index for cosine similarity search over completed articles.
	if _, err := pool.Exec(`
CREATE INDEX IF NOT EXISTS idx_articles_embedding_hnsw
    ON articles USING hnsw (embedding vector_cosine_ops)
    WITH (m = 16, ef_construction = 64)`); err != nil {
		return err
	}

	return nil
}
