package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
)

// Models lists every persisted model, in dependency order.
func Models() []any {
	return []any{
		&entity.Language{},
		&entity.Identifier{},
		&entity.LanguageIdentifier{},
		&entity.Parameter{},
		&entity.DomainElement{},
		&entity.Contribution{},
		&entity.Contributor{},
		&entity.ContributionContributor{},
		&entity.Source{},
		&entity.Value{},
		&entity.ValueReference{},
		&entity.Sentence{},
		&entity.SentenceReference{},
		&entity.ValueSentence{},
		&entity.Unit{},
		&entity.UnitParameter{},
		&entity.UnitDomainElement{},
		&entity.UnitValue{},
		&entity.UnitParameterUnit{},
		&entity.Datum{},
		&entity.File{},
		&history.Record{},
	}
}

// UniqueIndex is one cross-field unique constraint created with raw
// DDL rather than struct tags, because the columns involved come from
// embedded structs shared by many tables.
type UniqueIndex struct {
	Name    string
	Table   string
	Columns []string
}

var uniqueIndexes = []UniqueIndex{
	{"uq_languages_name", "languages", []string{"name"}},
	{"uq_parameters_name", "parameters", []string{"name"}},
	{"uq_contributions_name", "contributions", []string{"name"}},
	{"uq_contributors_name", "contributors", []string{"name"}},
	{"uq_domain_elements_parameter_name", "domain_elements", []string{"parameter_pk", "name"}},
	{"uq_domain_elements_parameter_number", "domain_elements", []string{"parameter_pk", "number"}},
	{"uq_identifiers_name_type", "identifiers", []string{"name", "type"}},
	{"uq_language_identifiers_pair", "language_identifiers", []string{"language_pk", "identifier_pk"}},
	{"uq_unit_domain_elements_parameter_name", "unit_domain_elements", []string{"unitparameter_pk", "name"}},
}

// UniqueIndexes returns the raw unique constraints Migrate creates.
func UniqueIndexes() []UniqueIndex {
	out := make([]UniqueIndex, len(uniqueIndexes))
	copy(out, uniqueIndexes)
	return out
}

// Migrate validates the variant registry and creates or updates the
// schema. A registry inconsistency aborts the migration before any
// DDL runs. Pass nil to migrate with the default (base-only) registry.
func Migrate(db *gorm.DB, reg *entity.Registry) error {
	if reg == nil {
		reg = entity.DefaultRegistry()
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("validate variant registry: %w", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	for _, idx := range uniqueIndexes {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			idx.Name, idx.Table, strings.Join(idx.Columns, ", "))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}
