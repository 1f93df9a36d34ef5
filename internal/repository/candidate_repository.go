package repository

import (
	"context"

	"logistics-news/internal/domain/entity"
)

type CandidateRepository interface {
	// Insert stores a discovered candidate. Returns false with no error
	// when the domain is already known, in any candidate status.
	Insert(ctx context.Context, candidate *entity.SourceCandidate) (bool, error)
	Get(ctx context.Context, id string) (*entity.SourceCandidate, error)
	List(ctx context.Context, status entity.CandidateStatus, offset, limit int) ([]*entity.SourceCandidate, error)
	// ListDiscovered returns candidates awaiting validation, oldest first.
	ListDiscovered(ctx context.Context, limit int) ([]*entity.SourceCandidate, error)
	Update(ctx context.Context, candidate *entity.SourceCandidate) error
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}
