package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// ListLanguagesQuery holds parameters for listing languages.
type ListLanguagesQuery struct {
	Pagination
	FilterOrder
}

// LanguageRepository defines data access for languages and their
// links to catalog identifiers.
type LanguageRepository interface {
	Create(ctx context.Context, lang *entity.Language) (*entity.Language, error)
	Update(ctx context.Context, lang *entity.Language) (*entity.Language, error)
	Get(ctx context.Context, pk int64) (*entity.Language, error)
	GetByID(ctx context.Context, id string) (*entity.Language, error)
	List(ctx context.Context, query *ListLanguagesQuery) ([]*entity.Language, int64, error)
	Delete(ctx context.Context, pk int64) error
	AddIdentifier(ctx context.Context, link *entity.LanguageIdentifier) (*entity.LanguageIdentifier, error)
	Identifiers(ctx context.Context, languagePK int64) ([]*entity.Identifier, error)
}
