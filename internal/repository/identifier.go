package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// IdentifierRepository defines data access for catalog identifiers.
type IdentifierRepository interface {
	Create(ctx context.Context, ident *entity.Identifier) (*entity.Identifier, error)
	Update(ctx context.Context, ident *entity.Identifier) (*entity.Identifier, error)
	Get(ctx context.Context, pk int64) (*entity.Identifier, error)
	GetByNameType(ctx context.Context, name string, typ entity.IdentifierType) (*entity.Identifier, error)
	Delete(ctx context.Context, pk int64) error
}
