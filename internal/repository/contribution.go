package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListContributionsQuery holds parameters for listing contributions.
type ListContributionsQuery struct {
	Pagination
	FilterOrder
}

// ContributionRepository defines data access for contributions and
// their contributor credits.
type ContributionRepository interface {
	Create(ctx context.Context, contrib *entity.Contribution) (*entity.Contribution, error)
	Update(ctx context.Context, contrib *entity.Contribution) (*entity.Contribution, error)
	Get(ctx context.Context, pk int64) (*entity.Contribution, error)
	GetByID(ctx context.Context, id string) (*entity.Contribution, error)
	List(ctx context.Context, query *ListContributionsQuery) ([]*entity.Contribution, int64, error)
	Delete(ctx context.Context, pk int64) error
	AddCredit(ctx context.Context, credit *entity.ContributionContributor) (*entity.ContributionContributor, error)
}

// ContributorRepository defines data access for contributors.
type ContributorRepository interface {
	Create(ctx context.Context, c *entity.Contributor) (*entity.Contributor, error)
	Update(ctx context.Context, c *entity.Contributor) (*entity.Contributor, error)
	Get(ctx context.Context, pk int64) (*entity.Contributor, error)
	GetByID(ctx context.Context, id string) (*entity.Contributor, error)
	Delete(ctx context.Context, pk int64) error
}
