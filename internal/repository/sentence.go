package repository

import (
	"context"

	"github.com/moyogo/clld/internal/entity"
)

// SentenceRepository defines data access for sentences. Sentences
// carry no external identifier, so lookups go by surrogate key only.
type SentenceRepository interface {
	Create(ctx context.Context, s *entity.Sentence) (*entity.Sentence, error)
	Update(ctx context.Context, s *entity.Sentence) (*entity.Sentence, error)
	Get(ctx context.Context, pk int64) (*entity.Sentence, error)
	Delete(ctx context.Context, pk int64) error
	AddReference(ctx context.Context, ref *entity.SentenceReference) (*entity.SentenceReference, error)
	References(ctx context.Context, sentencePK int64) ([]*entity.SentenceReference, error)
}
