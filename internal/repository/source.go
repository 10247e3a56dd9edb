package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListSourcesQuery holds parameters for listing sources.
type ListSourcesQuery struct {
	Pagination
	FilterOrder
}

// SourceRepository defines data access for bibliographical sources.
type SourceRepository interface {
	Create(ctx context.Context, src *entity.Source) (*entity.Source, error)
	Update(ctx context.Context, src *entity.Source) (*entity.Source, error)
	Get(ctx context.Context, pk int64) (*entity.Source, error)
	GetByID(ctx context.Context, id string) (*entity.Source, error)
	List(ctx context.Context, query *ListSourcesQuery) ([]*entity.Source, int64, error)
	Delete(ctx context.Context, pk int64) error
	// ListAll returns every source ordered by external id with
	// annotation data preloaded, for enrichment sweeps.
	ListAll(ctx context.Context) ([]*entity.Source, error)
	// SetDatum writes the key/value annotation on a source so that a
	// later DataDict resolves key to value.
	SetDatum(ctx context.Context, sourcePK int64, key, value string) error
}
