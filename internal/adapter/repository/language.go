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

type languageRepository struct{ db *gorm.DB }

func NewLanguageRepository(db *gorm.DB) repository.LanguageRepository {
	return &languageRepository{db: db}
}

type listLanguagesParams struct {
	filterexpr.OrderKeys

	ID         string
	IDs        []string
	Name       string
	NamePrefix string
	Variant    string
}

func (p *listLanguagesParams) apply(tx *gorm.DB) *gorm.DB {
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

func (r *languageRepository) Create(ctx context.Context, lang *entity.Language) (*entity.Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := lang.Validate(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(lang).Error; err != nil {
		return nil, translateDBError(err)
	}
	return lang, nil
}

func (r *languageRepository) Update(ctx context.Context, lang *entity.Language) (*entity.Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lang.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := lang.Validate(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(lang).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Language{}, lang.PK, err)
	}
	return lang, nil
}

func (r *languageRepository) Get(ctx context.Context, pk int64) (*entity.Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lang entity.Language
	if err := r.preloaded(ctx).First(&lang, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get language: %w", err)
	}
	return &lang, nil
}

func (r *languageRepository) GetByID(ctx context.Context, id string) (*entity.Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lang entity.Language
	if err := r.preloaded(ctx).Where("id = ?", id).First(&lang).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get language by id: %w", err)
	}
	return &lang, nil
}

func (r *languageRepository) List(ctx context.Context, query *repository.ListLanguagesQuery) ([]*entity.Language, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listLanguagesParams
	if err := filterexpr.Bind(query, &p, listLanguagesSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Language{})).Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count languages: %w", err)
	}
	var langs []*entity.Language
	err := tx.Order(listLanguagesSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&langs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list languages: %w", err)
	}
	return langs, total, nil
}

func (r *languageRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var lang entity.Language
	if err := r.db.WithContext(ctx).First(&lang, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load language for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&lang).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *languageRepository) AddIdentifier(ctx context.Context, link *entity.LanguageIdentifier) (*entity.LanguageIdentifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if link.LanguagePK <= 0 || link.IdentifierPK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		return nil, translateDBError(err)
	}
	return link, nil
}

func (r *languageRepository) Identifiers(ctx context.Context, languagePK int64) ([]*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var idents []*entity.Identifier
	err := r.db.WithContext(ctx).Model(&entity.Identifier{}).
		Joins("JOIN language_identifiers li ON li.identifier_pk = identifiers.pk AND li.deleted_at IS NULL").
		Where("li.language_pk = ?", languagePK).
		Order("li.pk").
		Find(&idents).Error
	if err != nil {
		return nil, fmt.Errorf("list language identifiers: %w", err)
	}
	return idents, nil
}

func (r *languageRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		Preload("LanguageIdentifiers", orderedByPK).
		Preload("LanguageIdentifiers.Identifier")
}
