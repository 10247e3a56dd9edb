package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/moyogo/clld/internal/entity"
)

func TestSentenceRepositoryLifecycle(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewSentenceRepository(db)
	ctx := context.Background()

	sentence, err := repo.Create(ctx, entity.NewSentence())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sentence.PK <= 0 || sentence.CurrentVersion() != 1 {
		t.Fatalf("created sentence pk=%d version=%d", sentence.PK, sentence.CurrentVersion())
	}

	// Sentences carry their text in annotation records.
	data := entity.NewData(entity.KindSentence, sentence.PK, map[string]string{
		"analyzed": "a-win d-aa-ba-yt'",
		"gloss":    "the.house 3SG-PRN-see-FIN",
		"original": "Awǝn daabajtʼ",
	})
	if err := db.Create(&data).Error; err != nil {
		t.Fatalf("annotate: %v", err)
	}

	got, err := repo.Get(ctx, sentence.PK)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	dict := got.DataDict()
	if len(dict) != 3 || dict["gloss"] != "the.house 3SG-PRN-see-FIN" {
		t.Fatalf("annotations = %+v", dict)
	}
	// NewData assigns ordinals in key order.
	if got.Data[0].Key != "analyzed" || got.Data[0].Ord != 1 || got.Data[2].Ord != 3 {
		t.Fatalf("annotation order = %+v", got.Data)
	}

	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CurrentVersion() != 2 {
		t.Fatalf("version after update = %d, want 2", got.CurrentVersion())
	}

	if err := repo.Delete(ctx, sentence.PK); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, sentence.PK); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want not found", err)
	}
}

func TestSentenceRepositoryReferences(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewSentenceRepository(db)
	ctx := context.Background()

	sentence, err := repo.Create(ctx, entity.NewSentence())
	if err != nil {
		t.Fatalf("create sentence: %v", err)
	}
	hewitt := seedSource(t, db, "hewitt-1979", "Abkhaz")
	chirikba := seedSource(t, db, "chirikba-2003", "Abkhaz (Languages of the World/Materials)")

	for _, ref := range []*entity.SentenceReference{
		{SentencePK: sentence.PK, SourcePK: hewitt.PK, Key: "47"},
		{SentencePK: sentence.PK, SourcePK: chirikba.PK, Key: "23-25"},
	} {
		if _, err := repo.AddReference(ctx, ref); err != nil {
			t.Fatalf("add reference %s: %v", ref.Key, err)
		}
	}

	if _, err := repo.AddReference(ctx, &entity.SentenceReference{SentencePK: sentence.PK}); !errors.Is(err, entity.ErrInvalidPK) {
		t.Fatalf("zero source err = %v, want invalid pk", err)
	}
	if _, err := repo.AddReference(ctx, &entity.SentenceReference{SentencePK: sentence.PK, SourcePK: 9999}); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("dangling source err = %v, want missing owner", err)
	}

	refs, err := repo.References(ctx, sentence.PK)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs) != 2 || refs[0].Key != "23-25" || refs[1].Key != "47" {
		t.Fatalf("reference order = %+v", refs)
	}
	if refs[0].Source == nil || refs[0].Source.ID != "chirikba-2003" {
		t.Fatalf("first reference source = %+v", refs[0].Source)
	}

	got, err := repo.Get(ctx, sentence.PK)
	if err != nil {
		t.Fatalf("get sentence: %v", err)
	}
	if len(got.References) != 2 || got.References[0].Key != "23-25" {
		t.Fatalf("preloaded references = %+v", got.References)
	}
	sorted := got.SortedReferences()
	if sorted[0].Key != "23-25" || sorted[1].Key != "47" {
		t.Fatalf("sorted references = %+v", sorted)
	}
}
