package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/repository"
	"github.com/moyogo/clld/pkg/filterexpr"
)

type parameterRepository struct{ db *gorm.DB }

func NewParameterRepository(db *gorm.DB) repository.ParameterRepository {
	return &parameterRepository{db: db}
}

type listParametersParams struct {
	filterexpr.OrderKeys

	ID         string
	IDs        []string
	Name       string
	NamePrefix string
	Variant    string
}

func (p *listParametersParams) apply(tx *gorm.DB) *gorm.DB {
	if p.ID != "" {
		tx = tx.Where("id = ?", p.ID)
	}
	if len(p.IDs) > 0 {
		tx = tx.Where("id IN ?", p.IDs)
	}
	if p.Name != "" {
		tx = tx.Where("name = ?", p.Name)
	}
	if p.NamePrefix != "" {
		tx = tx.Where("name LIKE ?", p.NamePrefix+"%")
	}
	if p.Variant != "" {
		tx = tx.Where("polymorphic_type = ?", p.Variant)
	}
	return tx
}

func (r *parameterRepository) Create(ctx context.Context, param *entity.Parameter) (*entity.Parameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(param).Error; err != nil {
		return nil, translateDBError(err)
	}
	return param, nil
}

func (r *parameterRepository) Update(ctx context.Context, param *entity.Parameter) (*entity.Parameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if param.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(param).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Parameter{}, param.PK, err)
	}
	return param, nil
}

func (r *parameterRepository) Get(ctx context.Context, pk int64) (*entity.Parameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var param entity.Parameter
	if err := r.preloaded(ctx).First(&param, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	return &param, nil
}

func (r *parameterRepository) GetByID(ctx context.Context, id string) (*entity.Parameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var param entity.Parameter
	if err := r.preloaded(ctx).Where("id = ?", id).First(&param).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get parameter by id: %w", err)
	}
	return &param, nil
}

func (r *parameterRepository) List(ctx context.Context, query *repository.ListParametersQuery) ([]*entity.Parameter, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listParametersParams
	if err := filterexpr.Bind(query, &p, listParametersSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Parameter{})).Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count parameters: %w", err)
	}
	var params []*entity.Parameter
	err := tx.Order(listParametersSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&params).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list parameters: %w", err)
	}
	return params, total, nil
}

func (r *parameterRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var param entity.Parameter
	if err := r.db.WithContext(ctx).First(&param, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load parameter for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&param).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *parameterRepository) CreateDomainElement(ctx context.Context, de *entity.DomainElement) (*entity.DomainElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if de.ParameterPK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(de).Error; err != nil {
		return nil, translateDBError(err)
	}
	return de, nil
}

func (r *parameterRepository) Domain(ctx context.Context, parameterPK int64) ([]*entity.DomainElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var domain []*entity.DomainElement
	err := r.db.WithContext(ctx).
		Where("parameter_pk = ?", parameterPK).
		Order("id, pk").
		Find(&domain).Error
	if err != nil {
		return nil, fmt.Errorf("list domain elements: %w", err)
	}
	return domain, nil
}

// LanguageValues feeds entity.GroupValuesByLanguage: values come back
// ordered by language then pk, with the language side loaded.
func (r *parameterRepository) LanguageValues(ctx context.Context, parameterPK int64) ([]*entity.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var values []*entity.Value
	err := r.db.WithContext(ctx).
		Preload("Language").
		Preload("DomainElement").
		Where("parameter_pk = ?", parameterPK).
		Order("language_pk, pk").
		Find(&values).Error
	if err != nil {
		return nil, fmt.Errorf("list parameter values: %w", err)
	}
	return values, nil
}

func (r *parameterRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Domain", func(tx *gorm.DB) *gorm.DB { return tx.Order("id, pk") }).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}
