package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListUnitsQuery holds parameters for listing units, optionally
// scoped to a language.
type ListUnitsQuery struct {
	Pagination
	FilterOrder

	LanguagePK int64
}

// UnitRepository defines data access for units.
type UnitRepository interface {
	Create(ctx context.Context, u *entity.Unit) (*entity.Unit, error)
	Update(ctx context.Context, u *entity.Unit) (*entity.Unit, error)
	Get(ctx context.Context, pk int64) (*entity.Unit, error)
	GetByID(ctx context.Context, id string) (*entity.Unit, error)
	List(ctx context.Context, query *ListUnitsQuery) ([]*entity.Unit, int64, error)
	Delete(ctx context.Context, pk int64) error
}

// UnitParameterRepository defines data access for unit parameters,
// their domains and their unit links.
type UnitParameterRepository interface {
	Create(ctx context.Context, up *entity.UnitParameter) (*entity.UnitParameter, error)
	Update(ctx context.Context, up *entity.UnitParameter) (*entity.UnitParameter, error)
	Get(ctx context.Context, pk int64) (*entity.UnitParameter, error)
	GetByID(ctx context.Context, id string) (*entity.UnitParameter, error)
	Delete(ctx context.Context, pk int64) error
	CreateDomainElement(ctx context.Context, ude *entity.UnitDomainElement) (*entity.UnitDomainElement, error)
	Domain(ctx context.Context, unitParameterPK int64) ([]*entity.UnitDomainElement, error)
	AddUnit(ctx context.Context, link *entity.UnitParameterUnit) (*entity.UnitParameterUnit, error)
}

// UnitValueRepository defines data access for unit values.
type UnitValueRepository interface {
	Create(ctx context.Context, uv *entity.UnitValue) (*entity.UnitValue, error)
	Update(ctx context.Context, uv *entity.UnitValue) (*entity.UnitValue, error)
	Get(ctx context.Context, pk int64) (*entity.UnitValue, error)
	GetByID(ctx context.Context, id string) (*entity.UnitValue, error)
	Delete(ctx context.Context, pk int64) error
}
