package load

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/infrastructure/database"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
)

func TestLoaderLoadsDataset(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	lat, lon := 43.17, 44.52
	freq := 0.75
	secondary := false
	ds := &Dataset{
		Languages: []LanguageEntry{
			{
				ID:       "abk",
				Name:     "Abkhaz",
				Latitude: &lat, Longitude: &lon,
				Identifiers: []IdentifierEntry{
					{Type: "iso639-3", Name: "abk"},
					{Type: "glottolog", Name: "abkh1244"},
				},
				Data: map[string]string{"family": "Northwest Caucasian"},
			},
			{
				ID:   "abk-bzyb",
				Name: "Bzyb Abkhaz",
				Identifiers: []IdentifierEntry{
					{Type: "iso639-3", Name: "abk", Description: "dialect"},
				},
			},
		},
		Parameters: []ParameterEntry{
			{
				ID:   "51A",
				Name: "Position of Case Affixes",
				Domain: []DomainElementEntry{
					{ID: "51A-1", Name: "Case suffixes"},
					{ID: "51A-2", Name: "Case prefixes", Number: 2},
				},
			},
		},
		Contributors: []ContributorEntry{
			{ID: "dryer", Name: "Matthew S. Dryer"},
			{ID: "comrie", Name: "Bernard Comrie", Email: "comrie@eva.mpg.de"},
		},
		Contributions: []ContributionEntry{
			{
				ID:   "chapter-51",
				Name: "Chapter 51",
				Date: "2011-04-28",
				Credits: []CreditEntry{
					{Contributor: "dryer"},
					{Contributor: "comrie", Ord: 2, Primary: &secondary},
				},
			},
		},
		Sources: []SourceEntry{
			{ID: "hewitt-1979", Name: "hewitt-1979", Author: "Hewitt, B. George", Year: "1979", Title: "Abkhaz"},
		},
		Sentences: []SentenceEntry{
			{
				Key:        "abk-ex-1",
				References: []ReferenceEntry{{Source: "hewitt-1979", Key: "101"}},
				Data:       map[string]string{"gloss": "the boy saw the girl"},
			},
		},
		Values: []ValueEntry{
			{
				ID:            "51A-abk",
				Language:      "abk",
				Parameter:     "51A",
				Contribution:  "chapter-51",
				DomainElement: "51A-1",
				Frequency:     &freq,
				Confidence:    "high",
				References:    []ReferenceEntry{{Source: "hewitt-1979", Key: "23-25"}},
				Sentences:     []string{"abk-ex-1"},
			},
			{
				ID:        "51A-abk-bzyb",
				Language:  "abk-bzyb",
				Parameter: "51A",
			},
		},
	}

	stats, err := loader.Load(context.Background(), ds)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Stats{
		Languages:      2,
		Parameters:     1,
		DomainElements: 2,
		Contributors:   2,
		Contributions:  1,
		Credits:        2,
		Sources:        1,
		Sentences:      1,
		Values:         2,
		References:     2,
	}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}

	// The shared ISO code must be created once and linked twice.
	var identifiers int64
	if err := db.Model(&entity.Identifier{}).Count(&identifiers).Error; err != nil {
		t.Fatal(err)
	}
	if identifiers != 2 {
		t.Fatalf("identifiers = %d, want 2", identifiers)
	}
	var links []entity.LanguageIdentifier
	if err := db.Order("pk").Find(&links).Error; err != nil {
		t.Fatal(err)
	}
	if len(links) != 3 {
		t.Fatalf("language identifier links = %d, want 3", len(links))
	}
	if links[2].Description != "dialect" {
		t.Fatalf("link description = %q, want %q", links[2].Description, "dialect")
	}

	var abk entity.Language
	if err := db.Preload("Data").Where("id = ?", "abk").First(&abk).Error; err != nil {
		t.Fatal(err)
	}
	if abk.Latitude == nil || *abk.Latitude != lat {
		t.Fatalf("latitude = %v, want %v", abk.Latitude, lat)
	}
	if got := abk.DataDict()["family"]; got != "Northwest Caucasian" {
		t.Fatalf("family annotation = %q", got)
	}

	var credits []entity.ContributionContributor
	if err := db.Order("ord").Find(&credits).Error; err != nil {
		t.Fatal(err)
	}
	if len(credits) != 2 || !credits[0].Primary || credits[1].Primary {
		t.Fatalf("credits = %+v, want primary then secondary", credits)
	}
	if credits[0].Ord != 1 || credits[1].Ord != 2 {
		t.Fatalf("credit ords = %d, %d", credits[0].Ord, credits[1].Ord)
	}

	var contrib entity.Contribution
	if err := db.Where("id = ?", "chapter-51").First(&contrib).Error; err != nil {
		t.Fatal(err)
	}
	if contrib.Date == nil || !contrib.Date.Equal(time.Date(2011, 4, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("contribution date = %v", contrib.Date)
	}

	var val entity.Value
	err = db.Preload("References").Preload("SentenceAssocs").
		Where("id = ?", "51A-abk").First(&val).Error
	if err != nil {
		t.Fatal(err)
	}
	if val.DomainElementPK == nil || val.ContributionPK == nil {
		t.Fatalf("value links not set: %+v", val)
	}
	if len(val.References) != 1 || val.References[0].Key != "23-25" {
		t.Fatalf("value references = %+v", val.References)
	}
	if len(val.SentenceAssocs) != 1 {
		t.Fatalf("value sentences = %+v", val.SentenceAssocs)
	}

	var bare entity.Value
	if err := db.Where("id = ?", "51A-abk-bzyb").First(&bare).Error; err != nil {
		t.Fatal(err)
	}
	if bare.DomainElementPK != nil || bare.ContributionPK != nil {
		t.Fatalf("bare value should carry no optional links: %+v", bare)
	}

	// Every write in the load is attributed to the loader actor.
	var records []history.Record
	if err := db.Where("object_type = ?", entity.KindLanguage).Order("pk").Find(&records).Error; err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("language history records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.ChangedBy != Actor {
			t.Fatalf("history actor = %q, want %q", r.ChangedBy, Actor)
		}
		if r.Version != 1 {
			t.Fatalf("history version = %d, want 1", r.Version)
		}
	}
}

func TestLoaderRejectsDomainMismatch(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	ds := &Dataset{
		Languages: []LanguageEntry{{ID: "abk", Name: "Abkhaz"}},
		Parameters: []ParameterEntry{
			{ID: "p1", Name: "First", Domain: []DomainElementEntry{{ID: "p1-1", Name: "One"}}},
			{ID: "p2", Name: "Second"},
		},
		Values: []ValueEntry{
			{ID: "v1", Language: "abk", Parameter: "p2", DomainElement: "p1-1"},
		},
	}

	_, err := loader.Load(context.Background(), ds)
	var mismatch *entity.DomainMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want DomainMismatchError", err)
	}

	// The failed flush must leave nothing behind.
	var languages int64
	if err := db.Model(&entity.Language{}).Count(&languages).Error; err != nil {
		t.Fatal(err)
	}
	if languages != 0 {
		t.Fatalf("languages after rollback = %d, want 0", languages)
	}
}

func TestLoaderRejectsUnknownKey(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	ds := &Dataset{
		Parameters: []ParameterEntry{{ID: "p1", Name: "First"}},
		Values:     []ValueEntry{{ID: "v1", Language: "missing", Parameter: "p1"}},
	}
	_, err := loader.Load(context.Background(), ds)
	if err == nil || !strings.Contains(err.Error(), `unknown language key "missing"`) {
		t.Fatalf("err = %v, want unknown language key", err)
	}
}

func TestLoaderRejectsDuplicateKey(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	ds := &Dataset{
		Languages: []LanguageEntry{
			{ID: "abk", Name: "Abkhaz"},
			{ID: "abk", Name: "Abkhaz again"},
		},
	}
	_, err := loader.Load(context.Background(), ds)
	if err == nil || !strings.Contains(err.Error(), `duplicate language key "abk"`) {
		t.Fatalf("err = %v, want duplicate language key", err)
	}
}

func TestLoaderRejectsInvalidIdentifierType(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	ds := &Dataset{
		Languages: []LanguageEntry{
			{ID: "abk", Name: "Abkhaz", Identifiers: []IdentifierEntry{{Type: "ethnologue", Name: "abk"}}},
		},
	}
	_, err := loader.Load(context.Background(), ds)
	var invalid *entity.InvalidIdentifierTypeError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidIdentifierTypeError", err)
	}
}

func TestLoaderLoadFile(t *testing.T) {
	requireSQLite(t)

	db := openTestDB(t)
	loader := newTestLoader(db)

	ds := Dataset{
		Languages:  []LanguageEntry{{ID: "kbd", Name: "Kabardian"}},
		Parameters: []ParameterEntry{{ID: "81A", Name: "Order of Subject, Object and Verb"}},
		Values:     []ValueEntry{{ID: "81A-kbd", Language: "kbd", Parameter: "81A"}},
	}
	raw, err := json.Marshal(ds)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	stats, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if stats.Languages != 1 || stats.Values != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	if _, err := loader.LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func newTestLoader(db *gorm.DB) *Loader {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewLoader(db, logger)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "load.db")
	db, err := database.Open("sqlite3", dsn, false)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.Migrate(db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func requireSQLite(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err == nil {
		err = db.Ping()
		db.Close()
	}
	if err != nil {
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}
}
