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

type sentenceRepository struct{ db *gorm.DB }

func NewSentenceRepository(db *gorm.DB) repository.SentenceRepository {
	return &sentenceRepository{db: db}
}

func (r *sentenceRepository) Create(ctx context.Context, s *entity.Sentence) (*entity.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error; err != nil {
		return nil, translateDBError(err)
	}
	return s, nil
}

func (r *sentenceRepository) Update(ctx context.Context, s *entity.Sentence) (*entity.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Sentence{}, s.PK, err)
	}
	return s, nil
}

func (r *sentenceRepository) Get(ctx context.Context, pk int64) (*entity.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s entity.Sentence
	err := r.db.WithContext(ctx).
		Preload("References", orderedByKey).
		Preload("References.Source").
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		First(&s, pk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get sentence: %w", err)
	}
	return &s, nil
}

func (r *sentenceRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var s entity.Sentence
	if err := r.db.WithContext(ctx).First(&s, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load sentence for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&s).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *sentenceRepository) AddReference(ctx context.Context, ref *entity.SentenceReference) (*entity.SentenceReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.SentencePK <= 0 || ref.SourcePK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ref).Error; err != nil {
		return nil, translateDBError(err)
	}
	return ref, nil
}

func (r *sentenceRepository) References(ctx context.Context, sentencePK int64) ([]*entity.SentenceReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var refs []*entity.SentenceReference
	err := r.db.WithContext(ctx).
		Preload("Source").
		Where("sentence_pk = ?", sentencePK).
		Order("key, pk").
		Find(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("list sentence references: %w", err)
	}
	return refs, nil
}
