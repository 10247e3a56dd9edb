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

type sourceRepository struct{ db *gorm.DB }

func NewSourceRepository(db *gorm.DB) repository.SourceRepository {
	return &sourceRepository{db: db}
}

type listSourcesParams struct {
	filterexpr.OrderKeys

	ID           string
	IDs          []string
	Name         string
	NamePrefix   string
	Author       string
	AuthorPrefix string
	Year         string
}

func (p *listSourcesParams) apply(tx *gorm.DB) *gorm.DB {
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
	if p.Author != "" {
		tx = tx.Where("author = ?", p.Author)
	}
	if p.AuthorPrefix != "" {
		tx = tx.Where("author LIKE ?", p.AuthorPrefix+"%")
	}
	if p.Year != "" {
		tx = tx.Where("year = ?", p.Year)
	}
	return tx
}

func (r *sourceRepository) Create(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(src).Error; err != nil {
		return nil, translateDBError(err)
	}
	return src, nil
}

func (r *sourceRepository) Update(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(src).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Source{}, src.PK, err)
	}
	return src, nil
}

func (r *sourceRepository) Get(ctx context.Context, pk int64) (*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var src entity.Source
	if err := r.preloaded(ctx).First(&src, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

func (r *sourceRepository) GetByID(ctx context.Context, id string) (*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var src entity.Source
	if err := r.preloaded(ctx).Where("id = ?", id).First(&src).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get source by id: %w", err)
	}
	return &src, nil
}

func (r *sourceRepository) List(ctx context.Context, query *repository.ListSourcesQuery) ([]*entity.Source, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listSourcesParams
	if err := filterexpr.Bind(query, &p, listSourcesSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Source{})).Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sources: %w", err)
	}
	var sources []*entity.Source
	err := tx.Order(listSourcesSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&sources).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list sources: %w", err)
	}
	return sources, total, nil
}

func (r *sourceRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var src entity.Source
	if err := r.db.WithContext(ctx).First(&src, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load source for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&src).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

// ListAll walks every source in external-id order with annotation
// data loaded, the traversal the enrichment sweep runs on.
func (r *sourceRepository) ListAll(ctx context.Context) ([]*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sources []*entity.Source
	err := r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Order("id, pk").
		Find(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("list all sources: %w", err)
	}
	return sources, nil
}

// SetDatum rewrites the newest annotation record under key, or
// appends one after the existing ordinals.
func (r *sourceRepository) SetDatum(ctx context.Context, sourcePK int64, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := r.db.WithContext(ctx)
	var datum entity.Datum
	err := tx.Where("object_type = ? AND object_id = ? AND key = ?", entity.KindSource, sourcePK, key).
		Order("ord DESC, pk DESC").
		First(&datum).Error
	switch {
	case err == nil:
		return tx.Model(&datum).Update("value", value).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		var ord int
		err := tx.Model(&entity.Datum{}).
			Where("object_type = ? AND object_id = ?", entity.KindSource, sourcePK).
			Select("COALESCE(MAX(ord), 0)").
			Scan(&ord).Error
		if err != nil {
			return fmt.Errorf("next datum ord: %w", err)
		}
		datum = entity.Datum{
			ObjectType: string(entity.KindSource),
			ObjectID:   sourcePK,
			Key:        key,
			Value:      value,
			Ord:        ord + 1,
		}
		return tx.Create(&datum).Error
	default:
		return fmt.Errorf("load datum: %w", err)
	}
}

func (r *sourceRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}
