package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
)

// translateDBError folds driver-specific constraint violations into
// the entity sentinels. Unique violations become ErrDuplicate,
// foreign key violations ErrMissingOwner, missing rows ErrNotFound.
// Anything else, including version conflicts raised by the history
// plugin, passes through unchanged.
func translateDBError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return entity.ErrDuplicate
		case "23503":
			return entity.ErrMissingOwner
		}
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return entity.ErrDuplicate
		case sqlite3.ErrConstraintForeignKey:
			return entity.ErrMissingOwner
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.ErrNotFound
	}
	return err
}
