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

type unitRepository struct{ db *gorm.DB }

func NewUnitRepository(db *gorm.DB) repository.UnitRepository {
	return &unitRepository{db: db}
}

type listUnitsParams struct {
	filterexpr.OrderKeys

	ID         string
	Name       string
	NamePrefix string
	Variant    string
}

func (p *listUnitsParams) apply(tx *gorm.DB) *gorm.DB {
	if p.ID != "" {
		tx = tx.Where("id = ?", p.ID)
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

func (r *unitRepository) Create(ctx context.Context, u *entity.Unit) (*entity.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.LanguagePK <= 0 {
		return nil, entity.ErrMissingOwner
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return nil, translateDBError(err)
	}
	return u, nil
}

func (r *unitRepository) Update(ctx context.Context, u *entity.Unit) (*entity.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(u).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Unit{}, u.PK, err)
	}
	return u, nil
}

func (r *unitRepository) Get(ctx context.Context, pk int64) (*entity.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u entity.Unit
	if err := r.preloaded(ctx).First(&u, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &u, nil
}

func (r *unitRepository) GetByID(ctx context.Context, id string) (*entity.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u entity.Unit
	if err := r.preloaded(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit by id: %w", err)
	}
	return &u, nil
}

func (r *unitRepository) List(ctx context.Context, query *repository.ListUnitsQuery) ([]*entity.Unit, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listUnitsParams
	if err := filterexpr.Bind(query, &p, listUnitsSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Unit{}))
	if query.LanguagePK > 0 {
		tx = tx.Where("language_pk = ?", query.LanguagePK)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count units: %w", err)
	}
	var units []*entity.Unit
	err := tx.Order(listUnitsSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&units).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}
	return units, total, nil
}

func (r *unitRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var u entity.Unit
	if err := r.db.WithContext(ctx).First(&u, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load unit for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&u).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *unitRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}

type unitParameterRepository struct{ db *gorm.DB }

func NewUnitParameterRepository(db *gorm.DB) repository.UnitParameterRepository {
	return &unitParameterRepository{db: db}
}

func (r *unitParameterRepository) Create(ctx context.Context, up *entity.UnitParameter) (*entity.UnitParameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(up).Error; err != nil {
		return nil, translateDBError(err)
	}
	return up, nil
}

func (r *unitParameterRepository) Update(ctx context.Context, up *entity.UnitParameter) (*entity.UnitParameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if up.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(up).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.UnitParameter{}, up.PK, err)
	}
	return up, nil
}

func (r *unitParameterRepository) Get(ctx context.Context, pk int64) (*entity.UnitParameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var up entity.UnitParameter
	if err := r.preloaded(ctx).First(&up, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit parameter: %w", err)
	}
	return &up, nil
}

func (r *unitParameterRepository) GetByID(ctx context.Context, id string) (*entity.UnitParameter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var up entity.UnitParameter
	if err := r.preloaded(ctx).Where("id = ?", id).First(&up).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit parameter by id: %w", err)
	}
	return &up, nil
}

func (r *unitParameterRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var up entity.UnitParameter
	if err := r.db.WithContext(ctx).First(&up, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load unit parameter for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&up).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *unitParameterRepository) CreateDomainElement(ctx context.Context, ude *entity.UnitDomainElement) (*entity.UnitDomainElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ude.UnitParameterPK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ude).Error; err != nil {
		return nil, translateDBError(err)
	}
	return ude, nil
}

func (r *unitParameterRepository) Domain(ctx context.Context, unitParameterPK int64) ([]*entity.UnitDomainElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var domain []*entity.UnitDomainElement
	err := r.db.WithContext(ctx).
		Where("unitparameter_pk = ?", unitParameterPK).
		Order("id, pk").
		Find(&domain).Error
	if err != nil {
		return nil, fmt.Errorf("list unit domain elements: %w", err)
	}
	return domain, nil
}

func (r *unitParameterRepository) AddUnit(ctx context.Context, link *entity.UnitParameterUnit) (*entity.UnitParameterUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if link.UnitPK <= 0 || link.UnitParameterPK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		return nil, translateDBError(err)
	}
	return link, nil
}

func (r *unitParameterRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Domain", func(tx *gorm.DB) *gorm.DB { return tx.Order("id, pk") }).
		Preload("UnitAssocs", orderedByPK).
		Preload("UnitAssocs.Unit").
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}

type unitValueRepository struct{ db *gorm.DB }

func NewUnitValueRepository(db *gorm.DB) repository.UnitValueRepository {
	return &unitValueRepository{db: db}
}

func (r *unitValueRepository) Create(ctx context.Context, uv *entity.UnitValue) (*entity.UnitValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if uv.UnitPK <= 0 || uv.UnitParameterPK <= 0 {
		return nil, entity.ErrMissingOwner
	}
	if err := r.checkDomain(ctx, uv); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(uv).Error; err != nil {
		return nil, translateDBError(err)
	}
	return uv, nil
}

func (r *unitValueRepository) Update(ctx context.Context, uv *entity.UnitValue) (*entity.UnitValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if uv.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.checkDomain(ctx, uv); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(uv).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.UnitValue{}, uv.PK, err)
	}
	return uv, nil
}

func (r *unitValueRepository) Get(ctx context.Context, pk int64) (*entity.UnitValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var uv entity.UnitValue
	err := r.db.WithContext(ctx).
		Preload("UnitDomainElement").
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		First(&uv, pk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit value: %w", err)
	}
	return &uv, nil
}

func (r *unitValueRepository) GetByID(ctx context.Context, id string) (*entity.UnitValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var uv entity.UnitValue
	err := r.db.WithContext(ctx).
		Preload("UnitDomainElement").
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		Where("id = ?", id).First(&uv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get unit value by id: %w", err)
	}
	return &uv, nil
}

func (r *unitValueRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var uv entity.UnitValue
	if err := r.db.WithContext(ctx).First(&uv, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load unit value for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&uv).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

// checkDomain mirrors the value repository's write-path domain guard
// against the unit parameter's domain.
func (r *unitValueRepository) checkDomain(ctx context.Context, uv *entity.UnitValue) error {
	if err := uv.Validate(); err != nil {
		return err
	}
	if uv.UnitDomainElement != nil || uv.UnitDomainElementPK == nil {
		return nil
	}
	var ude entity.UnitDomainElement
	if err := r.db.WithContext(ctx).First(&ude, *uv.UnitDomainElementPK).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrMissingOwner
		}
		return fmt.Errorf("load unit domain element: %w", err)
	}
	if ude.UnitParameterPK != uv.UnitParameterPK {
		return &entity.DomainMismatchError{
			Kind:            entity.KindUnitValue,
			ValuePK:         uv.PK,
			ParameterPK:     uv.UnitParameterPK,
			DomainElementPK: ude.PK,
			DomainParameter: ude.UnitParameterPK,
		}
	}
	return nil
}
