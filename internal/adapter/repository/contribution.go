package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/repository"
	"github.com/moyogo/clld/pkg/filterexpr"
)

type contributionRepository struct{ db *gorm.DB }

func NewContributionRepository(db *gorm.DB) repository.ContributionRepository {
	return &contributionRepository{db: db}
}

type listContributionsParams struct {
	filterexpr.OrderKeys

	ID         string
	Name       string
	NamePrefix string
	DateFrom   time.Time
	DateTo     time.Time
}

func (p *listContributionsParams) apply(tx *gorm.DB) *gorm.DB {
	if p.ID != "" {
		tx = tx.Where("id = ?", p.ID)
	}
	if p.Name != "" {
		tx = tx.Where("name = ?", p.Name)
	}
	if p.NamePrefix != "" {
		tx = tx.Where("name LIKE ?", p.NamePrefix+"%")
	}
	if !p.DateFrom.IsZero() {
		tx = tx.Where("date >= ?", p.DateFrom)
	}
	if !p.DateTo.IsZero() {
		tx = tx.Where("date <= ?", p.DateTo)
	}
	return tx
}

func (r *contributionRepository) Create(ctx context.Context, contrib *entity.Contribution) (*entity.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(contrib).Error; err != nil {
		return nil, translateDBError(err)
	}
	return contrib, nil
}

func (r *contributionRepository) Update(ctx context.Context, contrib *entity.Contribution) (*entity.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if contrib.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(contrib).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Contribution{}, contrib.PK, err)
	}
	return contrib, nil
}

func (r *contributionRepository) Get(ctx context.Context, pk int64) (*entity.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var contrib entity.Contribution
	if err := r.preloaded(ctx).First(&contrib, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	return &contrib, nil
}

func (r *contributionRepository) GetByID(ctx context.Context, id string) (*entity.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var contrib entity.Contribution
	if err := r.preloaded(ctx).Where("id = ?", id).First(&contrib).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get contribution by id: %w", err)
	}
	return &contrib, nil
}

func (r *contributionRepository) List(ctx context.Context, query *repository.ListContributionsQuery) ([]*entity.Contribution, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var p listContributionsParams
	if err := filterexpr.Bind(query, &p, listContributionsSchema); err != nil {
		return nil, 0, err
	}
	query.Normalize()

	tx := p.apply(r.db.WithContext(ctx).Model(&entity.Contribution{})).Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count contributions: %w", err)
	}
	var contribs []*entity.Contribution
	err := tx.Order(listContributionsSchema.Order.Clause(p.OrderKeys)).
		Offset(int(query.Offset())).
		Limit(int(query.PageSize)).
		Find(&contribs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list contributions: %w", err)
	}
	return contribs, total, nil
}

func (r *contributionRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var contrib entity.Contribution
	if err := r.db.WithContext(ctx).First(&contrib, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load contribution for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&contrib).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func (r *contributionRepository) AddCredit(ctx context.Context, credit *entity.ContributionContributor) (*entity.ContributionContributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if credit.ContributionPK <= 0 || credit.ContributorPK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(credit).Error; err != nil {
		return nil, translateDBError(err)
	}
	return credit, nil
}

func (r *contributionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Credits", orderedByOrd).
		Preload("Credits.Contributor").
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd)
}

type contributorRepository struct{ db *gorm.DB }

func NewContributorRepository(db *gorm.DB) repository.ContributorRepository {
	return &contributorRepository{db: db}
}

func (r *contributorRepository) Create(ctx context.Context, c *entity.Contributor) (*entity.Contributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return nil, translateDBError(err)
	}
	return c, nil
}

func (r *contributorRepository) Update(ctx context.Context, c *entity.Contributor) (*entity.Contributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.PK <= 0 {
		return nil, entity.ErrInvalidPK
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error; err != nil {
		return nil, resolveStaleWrite(ctx, r.db, &entity.Contributor{}, c.PK, err)
	}
	return c, nil
}

func (r *contributorRepository) Get(ctx context.Context, pk int64) (*entity.Contributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c entity.Contributor
	err := r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		First(&c, pk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get contributor: %w", err)
	}
	return &c, nil
}

func (r *contributorRepository) GetByID(ctx context.Context, id string) (*entity.Contributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c entity.Contributor
	err := r.db.WithContext(ctx).
		Preload("Data", orderedByOrd).
		Preload("Files", orderedByOrd).
		Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get contributor by id: %w", err)
	}
	return &c, nil
}

func (r *contributorRepository) Delete(ctx context.Context, pk int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var c entity.Contributor
	if err := r.db.WithContext(ctx).First(&c, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("load contributor for delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&c).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}
