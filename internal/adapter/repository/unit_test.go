package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/repository"
)

func TestUnitRepositoryCRUD(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewUnitRepository(db)
	ctx := context.Background()

	lang := seedLanguage(t, db, "abk", "Abkhaz")

	if _, err := repo.Create(ctx, entity.NewUnit("a-win", "a-win", 0)); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("zero language err = %v, want missing owner", err)
	}
	if _, err := repo.Create(ctx, entity.NewUnit("a-win", "a-win", 9999)); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("dangling language err = %v, want missing owner", err)
	}

	unit, err := repo.Create(ctx, entity.NewUnit("a-win", "a-win", lang.PK))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if unit.PK <= 0 || unit.CurrentVersion() != 1 {
		t.Fatalf("created unit pk=%d version=%d", unit.PK, unit.CurrentVersion())
	}

	got, err := repo.GetByID(ctx, "a-win")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	got.Description = "house (absolutive)"
	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CurrentVersion() != 2 {
		t.Fatalf("version after update = %d, want 2", got.CurrentVersion())
	}

	if err := repo.Delete(ctx, unit.PK); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, unit.PK); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want not found", err)
	}
}

func TestUnitRepositoryListByLanguage(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewUnitRepository(db)
	ctx := context.Background()

	abk := seedLanguage(t, db, "abk", "Abkhaz")
	kbd := seedLanguage(t, db, "kbd", "Kabardian")
	for _, seed := range []struct {
		id   string
		lang int64
	}{
		{"abk-win", abk.PK},
		{"abk-la", abk.PK},
		{"kbd-wane", kbd.PK},
	} {
		if _, err := repo.Create(ctx, entity.NewUnit(seed.id, seed.id, seed.lang)); err != nil {
			t.Fatalf("create %s: %v", seed.id, err)
		}
	}

	query := &repository.ListUnitsQuery{LanguagePK: abk.PK}
	units, total, err := repo.List(ctx, query)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(units) != 2 {
		t.Fatalf("language scope total = %d, rows = %d", total, len(units))
	}
	if units[0].ID != "abk-la" || units[1].ID != "abk-win" {
		t.Fatalf("name order = %q, %q", units[0].ID, units[1].ID)
	}

	query = &repository.ListUnitsQuery{LanguagePK: abk.PK}
	query.Filter = "name.startsWith('abk-w')"
	if _, total, err = repo.List(ctx, query); err != nil || total != 1 {
		t.Fatalf("scoped filter total = %d, err = %v", total, err)
	}
}

func TestUnitParameterRepositoryDomain(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewUnitParameterRepository(db)
	unitRepo := NewUnitRepository(db)
	ctx := context.Background()

	pos, err := repo.Create(ctx, entity.NewUnitParameter("pos", "Part of Speech"))
	if err != nil {
		t.Fatalf("create unit parameter: %v", err)
	}
	if _, err := repo.CreateDomainElement(ctx, entity.NewUnitDomainElement(pos.PK, "pos-noun", "noun")); err != nil {
		t.Fatalf("create noun: %v", err)
	}
	if _, err := repo.CreateDomainElement(ctx, entity.NewUnitDomainElement(pos.PK, "pos-verb", "verb")); err != nil {
		t.Fatalf("create verb: %v", err)
	}

	if _, err := repo.CreateDomainElement(ctx, entity.NewUnitDomainElement(0, "pos-adj", "adjective")); !errors.Is(err, entity.ErrInvalidPK) {
		t.Fatalf("zero parameter err = %v, want invalid pk", err)
	}
	if _, err := repo.CreateDomainElement(ctx, entity.NewUnitDomainElement(pos.PK, "pos-noun-2", "noun")); !errors.Is(err, entity.ErrDuplicate) {
		t.Fatalf("duplicate name err = %v, want duplicate", err)
	}

	domain, err := repo.Domain(ctx, pos.PK)
	if err != nil {
		t.Fatalf("domain: %v", err)
	}
	if len(domain) != 2 || domain[0].ID != "pos-noun" || domain[1].ID != "pos-verb" {
		t.Fatalf("domain = %+v", domain)
	}

	got, err := repo.GetByID(ctx, "pos")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if len(got.Domain) != 2 {
		t.Fatalf("preloaded domain = %+v", got.Domain)
	}

	// Units attach to the parameter through their own described link.
	lang := seedLanguage(t, db, "abk", "Abkhaz")
	unit, err := unitRepo.Create(ctx, entity.NewUnit("a-win", "a-win", lang.PK))
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	link := &entity.UnitParameterUnit{
		IDNameDescription: entity.IDNameDescription{ID: "pos-a-win", Name: "a-win as noun"},
		UnitPK:            unit.PK,
		UnitParameterPK:   pos.PK,
	}
	if _, err := repo.AddUnit(ctx, link); err != nil {
		t.Fatalf("add unit: %v", err)
	}
	if _, err := repo.AddUnit(ctx, &entity.UnitParameterUnit{UnitPK: unit.PK}); !errors.Is(err, entity.ErrInvalidPK) {
		t.Fatalf("zero parameter link err = %v, want invalid pk", err)
	}
	bad := &entity.UnitParameterUnit{
		IDNameDescription: entity.IDNameDescription{ID: "pos-missing"},
		UnitPK:            9999,
		UnitParameterPK:   pos.PK,
	}
	if _, err := repo.AddUnit(ctx, bad); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("dangling unit link err = %v, want missing owner", err)
	}

	got, err = repo.Get(ctx, pos.PK)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.UnitAssocs) != 1 || got.UnitAssocs[0].UnitPK != unit.PK {
		t.Fatalf("unit assocs = %+v", got.UnitAssocs)
	}
	if got.UnitAssocs[0].Unit == nil || got.UnitAssocs[0].Unit.Name != "a-win" {
		t.Fatalf("linked unit = %+v", got.UnitAssocs[0].Unit)
	}
}

func TestUnitValueRepositoryDomainGuard(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	repo := NewUnitValueRepository(db)
	upRepo := NewUnitParameterRepository(db)
	unitRepo := NewUnitRepository(db)
	ctx := context.Background()

	lang := seedLanguage(t, db, "abk", "Abkhaz")
	unit, err := unitRepo.Create(ctx, entity.NewUnit("a-win", "a-win", lang.PK))
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	pos, err := upRepo.Create(ctx, entity.NewUnitParameter("pos", "Part of Speech"))
	if err != nil {
		t.Fatalf("create pos: %v", err)
	}
	gender, err := upRepo.Create(ctx, entity.NewUnitParameter("gender", "Grammatical Gender"))
	if err != nil {
		t.Fatalf("create gender: %v", err)
	}
	noun, err := upRepo.CreateDomainElement(ctx, entity.NewUnitDomainElement(pos.PK, "pos-noun", "noun"))
	if err != nil {
		t.Fatalf("create noun: %v", err)
	}

	if _, err := repo.Create(ctx, entity.NewUnitValue("uv-zero", 0, pos.PK)); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("zero unit err = %v, want missing owner", err)
	}

	cross := entity.NewUnitValue("uv-cross", unit.PK, gender.PK)
	cross.UnitDomainElementPK = &noun.PK
	_, err = repo.Create(ctx, cross)
	var mismatch *entity.DomainMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("cross-parameter err = %v, want domain mismatch", err)
	}
	if mismatch.Kind != entity.KindUnitValue || mismatch.DomainParameter != pos.PK {
		t.Fatalf("mismatch = %+v", mismatch)
	}

	ghost := int64(9999)
	dangling := entity.NewUnitValue("uv-ghost", unit.PK, pos.PK)
	dangling.UnitDomainElementPK = &ghost
	if _, err := repo.Create(ctx, dangling); !errors.Is(err, entity.ErrMissingOwner) {
		t.Fatalf("dangling element err = %v, want missing owner", err)
	}

	ok := entity.NewUnitValue("uv-ok", unit.PK, pos.PK)
	ok.UnitDomainElementPK = &noun.PK
	created, err := repo.Create(ctx, ok)
	if err != nil {
		t.Fatalf("create with matching element: %v", err)
	}

	got, err := repo.Get(ctx, created.PK)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UnitDomainElement == nil || got.UnitDomainElement.Name != "noun" {
		t.Fatalf("unit domain element not preloaded: %+v", got.UnitDomainElement)
	}

	byID, err := repo.GetByID(ctx, "uv-ok")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.PK != created.PK {
		t.Fatalf("get by id pk = %d, want %d", byID.PK, created.PK)
	}
}
