package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/repository"
)

type identifierRepository struct{ db *gorm.DB }

func NewIdentifierRepository(db *gorm.DB) repository.IdentifierRepository {
	return &identifierRepository{db: db}
}

func (r *identifierRepository) Create(ctx context.Context, ident *entity.Identifier) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ident).Error; err != nil {
		return nil, translateDBError(err)
	}
	return ident, nil
}

func (r *identifierRepository) Update(ctx context.Context, ident *entity.Identifier) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ident.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(ident).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Identifier{}, ident.PK, err)
	}
	return ident, nil
}

func (r *identifierRepository) Get(ctx context.Context, pk int64) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ident entity.Identifier
	if err := r.db.WithContext(ctx).First(&ident, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get identifier: %w", err)
	}
	return &ident, nil
}

func (r *identifierRepository) GetByNameType(ctx context.Context, name string, typ entity.IdentifierType) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ident entity.Identifier
	err := r.db.WithContext(ctx).
		Where("name = ? AND type = ?", name, typ).
		First(&ident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get identifier by name/type: %w", err)
	}
	return &ident, nil
}

func (r *identifierRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ident entity.Identifier
	if err := r.db.WithContext(ctx).First(&ident, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load identifier for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&ident).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}
