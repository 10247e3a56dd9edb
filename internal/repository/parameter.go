package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListParametersQuery holds parameters for listing parameters.
type ListParametersQuery struct {
	Pagination
	FilterOrder
}

// ParameterRepository defines data access for parameters and their
// domains.
type ParameterRepository interface {
	Create(ctx context.Context, param *entity.Parameter) (*entity.Parameter, error)
	Update(ctx context.Context, param *entity.Parameter) (*entity.Parameter, error)
	Get(ctx context.Context, pk int64) (*entity.Parameter, error)
	GetByID(ctx context.Context, id string) (*entity.Parameter, error)
	List(ctx context.Context, query *ListParametersQuery) ([]*entity.Parameter, int64, error)
	Delete(ctx context.Context, pk int64) error
	CreateDomainElement(ctx context.Context, de *entity.DomainElement) (*entity.DomainElement, error)
	Domain(ctx context.Context, parameterPK int64) ([]*entity.DomainElement, error)
	// LanguageValues returns the parameter's values ordered by
	// language then pk, with languages preloaded, ready for
	// entity.GroupValuesByLanguage.
	LanguageValues(ctx context.Context, parameterPK int64) ([]*entity.Value, error)
}
