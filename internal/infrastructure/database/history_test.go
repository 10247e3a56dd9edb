package database

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
)

func TestHistoryLifecycle(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	ctx := history.WithActor(context.Background(), "editor")

	lang := entity.NewLanguage("abk", "Abkhaz")
	if err := db.WithContext(ctx).Create(lang).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if lang.Version != 1 {
		t.Fatalf("version after create = %d, want 1", lang.Version)
	}

	lang.Name = "Abkhaz (Caucasus)"
	if err := db.WithContext(ctx).Save(lang).Error; err != nil {
		t.Fatalf("first update: %v", err)
	}
	if lang.Version != 2 {
		t.Fatalf("version after first update = %d, want 2", lang.Version)
	}

	lang.Description = "Northwest Caucasian language of Abkhazia"
	if err := db.WithContext(ctx).Save(lang).Error; err != nil {
		t.Fatalf("second update: %v", err)
	}
	if lang.Version != 3 {
		t.Fatalf("version after second update = %d, want 3", lang.Version)
	}

	if err := db.WithContext(ctx).Delete(lang).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The records outlive the deleted row.
	recs, err := history.ForObject(ctx, db, entity.KindLanguage, lang.PK)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("records = %d, want 4", len(recs))
	}
	wantOps := []history.Op{history.OpCreate, history.OpUpdate, history.OpUpdate, history.OpDelete}
	for i, rec := range recs {
		if rec.Version != i+1 {
			t.Fatalf("record %d version = %d, want %d", i, rec.Version, i+1)
		}
		if rec.Op != wantOps[i] {
			t.Fatalf("record %d op = %q, want %q", i, rec.Op, wantOps[i])
		}
		if rec.ObjectType != string(entity.KindLanguage) || rec.ObjectPK != lang.PK {
			t.Fatalf("record %d object = %s/%d", i, rec.ObjectType, rec.ObjectPK)
		}
		if rec.ChangedBy != "editor" {
			t.Fatalf("record %d actor = %q, want editor", i, rec.ChangedBy)
		}
		if len(rec.ChangeID) != 36 || rec.ChangedAt.IsZero() {
			t.Fatalf("record %d bookkeeping incomplete: %+v", i, rec)
		}
	}

	// Creates snapshot the created state, updates and deletes the state
	// they replaced.
	snap := snapshotMap(t, recs[0])
	if snap["name"] != "Abkhaz" || snap["version"] != float64(1) {
		t.Fatalf("create snapshot = %v", snap)
	}
	snap = snapshotMap(t, recs[1])
	if snap["name"] != "Abkhaz" || snap["version"] != float64(1) {
		t.Fatalf("first update snapshot = %v", snap)
	}
	snap = snapshotMap(t, recs[2])
	if snap["name"] != "Abkhaz (Caucasus)" || snap["version"] != float64(2) {
		t.Fatalf("second update snapshot = %v", snap)
	}
	snap = snapshotMap(t, recs[3])
	if snap["description"] != "Northwest Caucasian language of Abkhazia" || snap["version"] != float64(3) {
		t.Fatalf("delete snapshot = %v", snap)
	}
}

func TestHistoryStaleUpdate(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	ctx := context.Background()

	lang := entity.NewLanguage("abk", "Abkhaz")
	if err := db.WithContext(ctx).Create(lang).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	lang.Name = "Abkhaz (Caucasus)"
	if err := db.WithContext(ctx).Save(lang).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	// A writer that loaded version 1 must not overwrite version 2.
	stale := entity.NewLanguage("abk", "Abkhaz (stale)")
	stale.PK = lang.PK
	stale.Version = 1
	if err := db.WithContext(ctx).Save(stale).Error; !errors.Is(err, entity.ErrVersionConflict) {
		t.Fatalf("stale update err = %v, want version conflict", err)
	}

	var live entity.Language
	if err := db.First(&live, lang.PK).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if live.Name != "Abkhaz (Caucasus)" || live.Version != 2 {
		t.Fatalf("live row after stale write: %q v%d", live.Name, live.Version)
	}

	recs, err := history.ForObject(ctx, db, entity.KindLanguage, lang.PK)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("records after rejected write = %d, want 2", len(recs))
	}
}

func TestHistoryStaleDelete(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	ctx := context.Background()

	lang := entity.NewLanguage("abk", "Abkhaz")
	if err := db.WithContext(ctx).Create(lang).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	lang.Name = "Abkhaz (Caucasus)"
	if err := db.WithContext(ctx).Save(lang).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	stale := entity.NewLanguage("abk", "Abkhaz")
	stale.PK = lang.PK
	stale.Version = 1
	if err := db.WithContext(ctx).Delete(stale).Error; !errors.Is(err, entity.ErrVersionConflict) {
		t.Fatalf("stale delete err = %v, want version conflict", err)
	}

	var live entity.Language
	if err := db.First(&live, lang.PK).Error; err != nil {
		t.Fatalf("row must survive a stale delete: %v", err)
	}
}

func TestHistoryRequiresLoadedVersion(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)

	lang := entity.NewLanguage("abk", "Abkhaz")
	if err := db.Create(lang).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	// A detached struct that never loaded its version cannot be written.
	detached := entity.NewLanguage("abk", "Abkhaz (detached)")
	detached.PK = lang.PK
	if err := db.Save(detached).Error; !errors.Is(err, entity.ErrInvalidPK) {
		t.Fatalf("update without loaded version err = %v, want invalid pk", err)
	}
	if err := db.Delete(detached).Error; !errors.Is(err, entity.ErrInvalidPK) {
		t.Fatalf("delete without loaded version err = %v, want invalid pk", err)
	}
}

func TestHistoryBatchCreate(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)

	langs := []*entity.Language{
		entity.NewLanguage("abk", "Abkhaz"),
		entity.NewLanguage("kbd", "Kabardian"),
	}
	if err := db.Create(&langs).Error; err != nil {
		t.Fatalf("batch create: %v", err)
	}
	for _, lang := range langs {
		if lang.PK <= 0 || lang.Version != 1 {
			t.Fatalf("language %s pk=%d version=%d", lang.ID, lang.PK, lang.Version)
		}
		recs, err := history.ForObject(context.Background(), db, entity.KindLanguage, lang.PK)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 || recs[0].Op != history.OpCreate {
			t.Fatalf("records for %s = %+v", lang.ID, recs)
		}
		if recs[0].ChangedBy != "" {
			t.Fatalf("actor without context = %q, want empty", recs[0].ChangedBy)
		}
	}
}

func TestHistoryRejectsBatchDelete(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)

	langs := []*entity.Language{
		entity.NewLanguage("abk", "Abkhaz"),
		entity.NewLanguage("kbd", "Kabardian"),
	}
	if err := db.Create(&langs).Error; err != nil {
		t.Fatalf("batch create: %v", err)
	}

	err := db.Delete(&langs).Error
	if err == nil || !strings.Contains(err.Error(), "batch writes of versioned models") {
		t.Fatalf("batch delete err = %v, want batch rejection", err)
	}
	var count int64
	if err := db.Model(&entity.Language{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("languages after rejected batch delete = %d, want 2", count)
	}
}

func TestHistoryRecordsRollBackWithTransaction(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	boom := errors.New("boom")

	var pk int64
	err := db.Transaction(func(tx *gorm.DB) error {
		lang := entity.NewLanguage("abk", "Abkhaz")
		if err := tx.Create(lang).Error; err != nil {
			return err
		}
		pk = lang.PK
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("transaction err = %v, want %v", err, boom)
	}
	if pk <= 0 {
		t.Fatalf("create inside transaction assigned pk = %d", pk)
	}

	// The record shares the mutation's transaction, so it rolled back
	// with the row.
	recs, err := history.ForObject(context.Background(), db, entity.KindLanguage, pk)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("records after rollback = %d, want 0", len(recs))
	}
}

func snapshotMap(t *testing.T, rec history.Record) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Snapshot, &m); err != nil {
		t.Fatalf("decode snapshot %s: %v", rec.ChangeID, err)
	}
	return m
}
