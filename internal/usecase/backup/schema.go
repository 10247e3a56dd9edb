package backup

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	gormschema "gorm.io/gorm/schema"

	"github.com/moyogo/clld/internal/infrastructure/database"
)

// columnKind is the portable type tag columns carry in the export
// format. Values are converted to and from JSON based on the kind.
type columnKind string

const (
	kindBool   columnKind = "bool"
	kindInt    columnKind = "int"
	kindUint   columnKind = "uint"
	kindFloat  columnKind = "float"
	kindString columnKind = "string"
	kindTime   columnKind = "time"
	kindBytes  columnKind = "bytes"
	kindJSON   columnKind = "json"
)

type columnSchema struct {
	Name      string
	Kind      columnKind
	Nullable  bool
	Unique    bool
	Increment bool
}

type indexSchema struct {
	Name    string
	Unique  bool
	Columns []string
}

type tableSchema struct {
	Name       string
	Columns    []*columnSchema
	PrimaryKey []string
	Indexes    []indexSchema
}

func (t *tableSchema) column(name string) *columnSchema {
	for _, col := range t.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

func (t *tableSchema) columnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// conflictColumns returns the columns the import upsert conflicts on:
// the primary key, or the first unique index for tables without one.
func (t *tableSchema) conflictColumns() []string {
	if len(t.PrimaryKey) > 0 {
		return t.PrimaryKey
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Columns) > 0 {
			return idx.Columns
		}
	}
	return nil
}

// loadTables derives the backup schema from the migration models. The
// declaration order of database.Models keeps each table behind the
// tables it references, so replaying an export satisfies foreign keys
// row by row.
func loadTables() ([]*tableSchema, error) {
	cache := &sync.Map{}
	namer := gormschema.NamingStrategy{IdentifierMaxLength: 64}

	managed := make(map[string][]database.UniqueIndex)
	for _, idx := range database.UniqueIndexes() {
		managed[idx.Table] = append(managed[idx.Table], idx)
	}

	models := database.Models()
	tables := make([]*tableSchema, 0, len(models))
	for _, model := range models {
		sch, err := gormschema.Parse(model, cache, namer)
		if err != nil {
			return nil, fmt.Errorf("parse schema of %T: %w", model, err)
		}
		tbl := &tableSchema{
			Name:       sch.Table,
			PrimaryKey: append([]string(nil), sch.PrimaryFieldDBNames...),
		}
		for _, dbName := range sch.DBNames {
			f := sch.FieldsByDBName[dbName]
			tbl.Columns = append(tbl.Columns, &columnSchema{
				Name:      dbName,
				Kind:      columnKindOf(f),
				Nullable:  !f.NotNull && !f.PrimaryKey,
				Unique:    f.Unique,
				Increment: f.AutoIncrement,
			})
		}
		for name, idx := range sch.ParseIndexes() {
			cols := make([]string, 0, len(idx.Fields))
			for _, opt := range idx.Fields {
				cols = append(cols, opt.DBName)
			}
			tbl.Indexes = append(tbl.Indexes, indexSchema{
				Name:    name,
				Unique:  idx.Class == "UNIQUE",
				Columns: cols,
			})
		}
		for _, idx := range managed[sch.Table] {
			tbl.Indexes = append(tbl.Indexes, indexSchema{
				Name:    idx.Name,
				Unique:  true,
				Columns: append([]string(nil), idx.Columns...),
			})
		}
		// ParseIndexes iterates a map, so order the merged result for
		// stable hashes and conflict targets.
		sort.Slice(tbl.Indexes, func(i, j int) bool { return tbl.Indexes[i].Name < tbl.Indexes[j].Name })
		tables = append(tables, tbl)
	}
	return tables, nil
}

func columnKindOf(f *gormschema.Field) columnKind {
	switch f.DataType {
	case gormschema.Bool:
		return kindBool
	case gormschema.Int:
		return kindInt
	case gormschema.Uint:
		return kindUint
	case gormschema.Float:
		return kindFloat
	case gormschema.Time:
		return kindTime
	case gormschema.Bytes:
		return kindBytes
	case gormschema.String:
		return kindString
	}
	if strings.Contains(strings.ToLower(string(f.DataType)), "json") {
		return kindJSON
	}
	return kindString
}

func computeSchemaHash(tables []*tableSchema) string {
	builder := &strings.Builder{}
	sorted := make([]*tableSchema, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, tbl := range sorted {
		builder.WriteString(tbl.Name)
		builder.WriteString("|cols:")
		cols := make([]*columnSchema, len(tbl.Columns))
		copy(cols, tbl.Columns)
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
		for _, col := range cols {
			builder.WriteString(fmt.Sprintf("%s:%s:%t:%t:%t;", col.Name, col.Kind, col.Nullable, col.Unique, col.Increment))
		}
		builder.WriteString("|pk:")
		for _, pk := range tbl.PrimaryKey {
			builder.WriteString(pk)
			builder.WriteByte(',')
		}
		builder.WriteString("|idx:")
		for _, idx := range tbl.Indexes {
			builder.WriteString(idx.Name)
			builder.WriteString(":")
			builder.WriteString(strconv.FormatBool(idx.Unique))
			builder.WriteString(":")
			for _, col := range idx.Columns {
				builder.WriteString(col)
				builder.WriteByte(',')
			}
			builder.WriteByte(';')
		}
		builder.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(builder.String()))
	return fmt.Sprintf("%x", sum[:])
}
