package history

import (
	"context"

	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
)

// ForObject returns the change records of one object, oldest first.
// Records remain readable after the live row has been deleted.
func ForObject(ctx context.Context, db *gorm.DB, kind entity.Kind, pk int64) ([]Record, error) {
	var recs []Record
	err := db.WithContext(ctx).
		Where("object_type = ? AND object_pk = ?", string(kind), pk).
		Order("version").
		Find(&recs).Error
	return recs, err
}
