package repository

import (
	"context"
	"testing"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/repository"
)

func TestSourceRepositorySetDatum(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	src := seedSource(t, db, "hewitt-1979", "Abkhaz")

	if err := repo.SetDatum(ctx, src.PK, "gbs_id", "XYZ"); err != nil {
		t.Fatalf("set gbs_id: %v", err)
	}
	// A second write under the same key rewrites in place.
	if err := repo.SetDatum(ctx, src.PK, "gbs_id", "ABC"); err != nil {
		t.Fatalf("rewrite gbs_id: %v", err)
	}
	if err := repo.SetDatum(ctx, src.PK, "thumbnail", "https://books.google.com/books?id=ABC"); err != nil {
		t.Fatalf("set thumbnail: %v", err)
	}

	got, err := repo.Get(ctx, src.PK)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data := got.DataDict()
	if data["gbs_id"] != "ABC" {
		t.Fatalf("gbs_id = %q, want ABC", data["gbs_id"])
	}
	if len(got.Data) != 2 {
		t.Fatalf("datum rows = %d, want 2", len(got.Data))
	}
	if got.Data[0].Ord != 1 || got.Data[1].Ord != 2 {
		t.Fatalf("ordinals = %d, %d", got.Data[0].Ord, got.Data[1].Ord)
	}

	// With duplicate keys on file, the newest record is the one that
	// gets rewritten, matching the read side's last-write-wins.
	older := entity.Datum{
		ObjectType: string(entity.KindSource),
		ObjectID:   src.PK,
		Key:        "gbs_id",
		Value:      "stale",
		Ord:        5,
	}
	if err := db.Create(&older).Error; err != nil {
		t.Fatalf("seed duplicate datum: %v", err)
	}
	if err := repo.SetDatum(ctx, src.PK, "gbs_id", "NEW"); err != nil {
		t.Fatalf("rewrite duplicated key: %v", err)
	}
	got, err = repo.Get(ctx, src.PK)
	if err != nil {
		t.Fatalf("get after rewrite: %v", err)
	}
	if got.DataDict()["gbs_id"] != "NEW" {
		t.Fatalf("gbs_id after rewrite = %q, want NEW", got.DataDict()["gbs_id"])
	}
	var rows int64
	err = db.Model(&entity.Datum{}).
		Where("object_type = ? AND object_id = ? AND key = ?", entity.KindSource, src.PK, "gbs_id").
		Count(&rows).Error
	if err != nil {
		t.Fatalf("count datum rows: %v", err)
	}
	if rows != 2 {
		t.Fatalf("gbs_id rows = %d, want 2", rows)
	}
}

func TestSourceRepositoryListAll(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	seedSource(t, db, "ohala-1983", "Cross-language use of pitch")
	seedSource(t, db, "chirikba-2003", "Abkhaz")
	annotated := seedSource(t, db, "hewitt-1979", "Abkhaz grammar")
	if err := repo.SetDatum(ctx, annotated.PK, "gbs_id", "XYZ"); err != nil {
		t.Fatalf("set datum: %v", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("sources = %d, want 3", len(all))
	}
	if all[0].ID != "chirikba-2003" || all[1].ID != "hewitt-1979" || all[2].ID != "ohala-1983" {
		t.Fatalf("id order = %q, %q, %q", all[0].ID, all[1].ID, all[2].ID)
	}
	if len(all[1].Data) != 1 || all[1].Data[0].Key != "gbs_id" {
		t.Fatalf("annotations on %s = %+v", all[1].ID, all[1].Data)
	}
}

func TestSourceRepositoryList(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	hewitt := entity.NewSource("hewitt-1979", "Abkhaz")
	hewitt.Author = "Hewitt, B. George"
	hewitt.Year = "1979"
	chirikba := entity.NewSource("chirikba-2003", "Abkhaz (Languages of the World/Materials)")
	chirikba.Author = "Chirikba, Viacheslav"
	chirikba.Year = "2003"
	dumezil := entity.NewSource("dumezil-1975", "Le verbe oubykh")
	dumezil.Author = "Dumézil, Georges"
	dumezil.Year = "1975"
	for _, src := range []*entity.Source{hewitt, chirikba, dumezil} {
		if _, err := repo.Create(ctx, src); err != nil {
			t.Fatalf("create %s: %v", src.ID, err)
		}
	}

	query := &repository.ListSourcesQuery{}
	query.Filter = "author.startsWith('Hewitt')"
	sources, total, err := repo.List(ctx, query)
	if err != nil || total != 1 {
		t.Fatalf("author filter total = %d, err = %v", total, err)
	}
	if sources[0].ID != "hewitt-1979" {
		t.Fatalf("author filter row = %q", sources[0].ID)
	}

	query = &repository.ListSourcesQuery{}
	query.Filter = "year == '2003'"
	if _, total, err = repo.List(ctx, query); err != nil || total != 1 {
		t.Fatalf("year filter total = %d, err = %v", total, err)
	}

	query = &repository.ListSourcesQuery{}
	query.OrderBy = "year desc"
	sources, _, err = repo.List(ctx, query)
	if err != nil {
		t.Fatalf("ordered list: %v", err)
	}
	if sources[0].Year != "2003" || sources[1].Year != "1979" || sources[2].Year != "1975" {
		t.Fatalf("year order = %q, %q, %q", sources[0].Year, sources[1].Year, sources[2].Year)
	}
}
