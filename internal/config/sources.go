// Package config loads the YAML files that seed the service: the
// curated source roster and the discovery query set.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

// SourcesFile is the on-disk shape of the source roster.
type SourcesFile struct {
	Sources []*entity.Source `yaml:"sources"`
}

// LoadSources loads and validates the source roster from a YAML file.
// The path comes from a trusted source (CLI flag or environment), not
// user input.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	seen := make(map[string]bool, len(file.Sources))
	for i, src := range file.Sources {
		if src.FetchIntervalMinutes == 0 {
			src.FetchIntervalMinutes = 60
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i, src.SourceID, err)
		}
		if seen[src.SourceID] {
			return nil, fmt.Errorf("duplicate source_id %q", src.SourceID)
		}
		seen[src.SourceID] = true
	}
	return &file, nil
}

// Seed reconciles the roster into the store. Upsert preserves runtime
// health fields, so reseeding on every start is safe.
func (f *SourcesFile) Seed(ctx context.Context, repo repository.SourceRepository) error {
	for _, src := range f.Sources {
		if err := repo.Upsert(ctx, src); err != nil {
			return fmt.Errorf("upsert source %s: %w", src.SourceID, err)
		}
	}
	slog.Info("seeded sources from config", slog.Int("count", len(f.Sources)))
	return nil
}
