package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
)

// resolveStaleWrite distinguishes a stale versioned write from a
// write against a row that no longer exists. The version guard
// reports both as zero affected rows.
func resolveStaleWrite(ctx context.Context, db *gorm.DB, model any, pk int64, err error) error {
	if !errors.Is(err, entity.ErrVersionConflict) {
		return translateDBError(err)
	}
	var n int64
	if cntErr := db.WithContext(ctx).Model(model).Where("pk = ?", pk).Count(&n).Error; cntErr == nil && n == 0 {
		return entity.ErrNotFound
	}
	return err
}

func orderedByOrd(tx *gorm.DB) *gorm.DB { return tx.Order("ord, pk") }

func orderedByPK(tx *gorm.DB) *gorm.DB { return tx.Order("pk") }

func orderedByKey(tx *gorm.DB) *gorm.DB { return tx.Order("key, pk") }
