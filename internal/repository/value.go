package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListValuesQuery holds parameters for listing values, optionally
// scoped to an owning language, parameter or contribution.
type ListValuesQuery struct {
	Pagination
	FilterOrder

	LanguagePK     int64
	ParameterPK    int64
	ContributionPK int64
}

// ValueRepository defines data access for values, their citations and
// their example sentences.
type ValueRepository interface {
	Create(ctx context.Context, value *entity.Value) (*entity.Value, error)
	Update(ctx context.Context, value *entity.Value) (*entity.Value, error)
	Get(ctx context.Context, pk int64) (*entity.Value, error)
	GetByID(ctx context.Context, id string) (*entity.Value, error)
	List(ctx context.Context, query *ListValuesQuery) ([]*entity.Value, int64, error)
	Delete(ctx context.Context, pk int64) error
	AddReference(ctx context.Context, ref *entity.ValueReference) (*entity.ValueReference, error)
	References(ctx context.Context, valuePK int64) ([]*entity.ValueReference, error)
	AddSentence(ctx context.Context, link *entity.ValueSentence) (*entity.ValueSentence, error)
}
