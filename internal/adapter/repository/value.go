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

type valueRepository struct{ db *gorm.DB }

func NewValueRepository(db *gorm.DB) repository.ValueRepository {
	return &valueRepository{db: db}
}

type listValuesParams struct {
	filterexpr.OrderKeys

	ID           string
	Name         string
	NamePrefix   string
	Variant      string
	Confidence   string
	FrequencyMin *float64
	FrequencyMax *float64
}

func (p *listValuesParams) apply(tx *gorm.DB) *gorm.DB {
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
	if p.Confidence != "" {
		tx = tx.Where("confidence = ?", p.Confidence)
	}
	if p.FrequencyMin != nil {
		tx = tx.Where("frequency >= ?", *p.FrequencyMin)
	}
	if p.FrequencyMax != nil {
		tx = tx.Where("frequency <= ?", *p.FrequencyMax)
	}
	return tx
}

func (r *valueRepository) Create(ctx context.Context, value *entity.Value) (*entity.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value.LanguagePK <= 0 || value.ParameterPK <= 0 {
		return nil, entity.ErrMissingOwner
	}
	if err := r.checkDomain(ctx, value); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(value).Error; err != nil {
		return nil, translateDBError(err)
	}
	return value, nil
}

func (r *valueRepository) Update(ctx context.Context, value *entity.Value) (*entity.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.checkDomain(ctx, value); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(value).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Value{}, value.PK, err)
	}
	return value, nil
}

func (r *valueRepository) Get(ctx context.Context, pk int64) (*entity.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value entity.Value
	if err := r.preloaded(ctx).First(&value, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get value: %w", err)
	}
	return &value, nil
}

func (r *valueRepository) GetByID(ctx context.Context, id string) (*entity.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value entity.Value
	if err := r.preloaded(ctx).Where("id = ?", id).First(&value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get value by id: %w", err)
	}
	return &value, nil
}

func (r *valueRepository) List(ctx context.Context, query *repository.ListValuesQuery) ([]*entity.Value, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listValuesParams
	if err := filterexpr.Bind(query, &p, listValuesSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Value{}))
	if query.LanguagePK > 0 {
		tx = tx.Where("language_pk = ?", query.LanguagePK)
	}
	if query.ParameterPK > 0 {
		tx = tx.Where("parameter_pk = ?", query.ParameterPK)
	}
	if query.ContributionPK > 0 {
		tx = tx.Where("contribution_pk = ?", query.ContributionPK)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count values: %w", err)
	}
	var values []*entity.Value
	err := tx.Order(listValuesSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&values).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list values: %w", err)
	}
	return values, total, nil
}

func (r *valueRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var value entity.Value
	if err := r.db.WithContext(ctx).First(&value, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load value for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&value).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *valueRepository) AddReference(ctx context.Context, ref *entity.ValueReference) (*entity.ValueReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.ValuePK <= 0 || ref.SourcePK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ref).Error; err != nil {
		return nil, translateDBError(err)
	}
	return ref, nil
}

func (r *valueRepository) References(ctx context.Context, valuePK int64) ([]*entity.ValueReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var refs []*entity.ValueReference
	err := r.db.WithContext(ctx).
		Preload("Source").
		Where("value_pk = ?", valuePK).
		Order("key, pk").
		Find(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("list value references: %w", err)
	}
	return refs, nil
}

func (r *valueRepository) AddSentence(ctx context.Context, link *entity.ValueSentence) (*entity.ValueSentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if link.ValuePK <= 0 || link.SentencePK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		return nil, translateDBError(err)
	}
	return link, nil
}

// checkDomain enforces the domain invariant on the write path. With a
// loaded domain element the entity check suffices; with a bare foreign
// key the element is fetched so the parameters can be compared.
func (r *valueRepository) checkDomain(ctx context.Context, value *entity.Value) error {
	if err := value.Validate(); err != nil {
		return err
	}
	if value.DomainElement != nil || value.DomainElementPK == nil {
		return nil
	}
	var de entity.DomainElement
	if err := r.db.WithContext(ctx).First(&de, *value.DomainElementPK).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrMissingOwner
		}
		return fmt.Errorf("load domain element: %w", err)
	}
	if de.ParameterPK != value.ParameterPK {
		return &entity.DomainMismatchError{
			Kind:            entity.KindValue,
			ValuePK:         value.PK,
			ParameterPK:     value.ParameterPK,
			DomainElementPK: de.PK,
			DomainParameter: de.ParameterPK,
		}
	}
	return nil
}

func (r *valueRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("DomainElement").
		Preload("References", orderedByKey).
		Preload("References.Source").
		Preload("SentenceAssocs", orderedByPK).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}
