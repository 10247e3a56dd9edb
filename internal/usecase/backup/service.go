package backup

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // ensure sqlite driver available
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
)

var errNoTablesSelected = errors.New("backup: no tables selected")

type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

type Service struct {
	driver     string
	dsn        string
	batchSize  int
	tables     []*tableSchema
	tableIndex map[string]*tableSchema
	schemaHash string
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service bound to the provided database driver and DSN.
func NewService(driver, dsn string, opts ...Option) (*Service, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql":
		driver = "postgres"
	case "sqlite", "sqlite3":
		driver = "sqlite3"
	case "":
		return nil, errors.New("backup: driver is required")
	default:
		return nil, fmt.Errorf("backup: unsupported driver %q", driver)
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("backup: DSN is required")
	}

	tables, err := loadTables()
	if err != nil {
		return nil, err
	}
	tableIndex := make(map[string]*tableSchema, len(tables))
	for _, tbl := range tables {
		tableIndex[tbl.Name] = tbl
	}

	svc := &Service{
		driver:     driver,
		dsn:        dsn,
		batchSize:  defaultBatchSize,
		tables:     tables,
		tableIndex: tableIndex,
		schemaHash: computeSchemaHash(tables),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	tables   []string
	reporter ProgressReporter
}

// WithTables restricts export to the provided table names (snake_case as in DB).
func WithTables(tables []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	tables []string
	clean  bool
}

// WithImportTables restricts import to the provided table names.
func WithImportTables(tables []string) ImportOption {
	return func(cfg *importConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// WithCleanTables empties every selected table before the rows are
// replayed, inside the import transaction.
func WithCleanTables(clean bool) ImportOption {
	return func(cfg *importConfig) {
		cfg.clean = clean
	}
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportID   string         `json:"export_id,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	SchemaHash string         `json:"schema_hash,omitempty"`
	Tables     []string       `json:"tables,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	ExportID   string          `json:"export_id"`
	ExportedAt *time.Time      `json:"exported_at"`
	SchemaHash string          `json:"schema_hash"`
	Tables     []string        `json:"tables"`
	RowCounts  map[string]int  `json:"row_counts"`
	Payload    json.RawMessage `json:"payload"`
}

type sequenceKey struct {
	Table  string
	Column string
}

type sequenceStats map[sequenceKey]int64

func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	counts := make(map[string]int, len(tables))
	for _, tbl := range tables {
		count, err := s.countTableRows(ctx, db, tbl.Name)
		if err != nil {
			return fmt.Errorf("count table %s: %w", tbl.Name, err)
		}
		counts[tbl.Name] = count
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       "meta",
		Version:    formatVersion,
		ExportID:   uuid.NewString(),
		ExportedAt: &now,
		SchemaHash: s.schemaHash,
		Tables:     tableNames(tables),
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, tbl := range tables {
		total := counts[tbl.Name]
		reporter.StartTable(tbl.Name, total)
		if err := s.exportTable(ctx, db, tbl, reporter, writer); err != nil {
			return err
		}
		reporter.FinishTable(tbl.Name)
	}
	return writer.Flush()
}

func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	tableFilter := make(map[string]*tableSchema, len(tables))
	for _, tbl := range tables {
		tableFilter[tbl.Name] = tbl
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if cfg.clean {
		// Reverse order empties referencing tables before their parents.
		for i := len(tables) - 1; i >= 0; i-- {
			query := fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(tables[i].Name))
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("clean table %s: %w", tables[i].Name, err)
			}
		}
	}

	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     rawRecord
		stats    = make(sequenceStats)
	)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			switch rec.Type {
			case "meta":
				metaSeen = true
				meta = rec
			default:
				tbl, ok := tableFilter[rec.Type]
				if !ok {
					// Skip records for tables not requested.
					break
				}
				if len(rec.Payload) == 0 {
					return fmt.Errorf("backup: missing payload for table %s", rec.Type)
				}
				if err := s.importRow(ctx, tx, tbl, rec.Payload, stats); err != nil {
					return err
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errors.New("backup: missing meta record")
	}
	if meta.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", meta.Version)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	commit = true

	if err := s.syncSequences(ctx, db, stats); err != nil {
		return err
	}
	return nil
}

func (s *Service) exportTable(ctx context.Context, db *sql.DB, tbl *tableSchema, reporter ProgressReporter, w io.Writer) error {
	columns := tbl.columnNames()
	if len(columns) == 0 {
		return nil
	}
	orderBy := buildOrderByClause(tbl)
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for offset := 0; ; offset += batch {
		query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT %d OFFSET %d",
			strings.Join(quoteAll(columns), ", "),
			pq.QuoteIdentifier(tbl.Name),
			orderBy,
			batch,
			offset,
		)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("query %s: %w", tbl.Name, err)
		}

		rowCount := 0
		for rows.Next() {
			values := make([]any, len(columns))
			dest := make([]any, len(columns))
			for i := range dest {
				dest[i] = &values[i]
			}
			if err := rows.Scan(dest...); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s: %w", tbl.Name, err)
			}
			rowMap, err := s.convertRow(tbl, columns, values)
			if err != nil {
				rows.Close()
				return err
			}
			if err := writeRecord(w, record{Type: tbl.Name, Payload: rowMap}); err != nil {
				rows.Close()
				return err
			}
			reporter.Increment(tbl.Name, 1)
			rowCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate %s: %w", tbl.Name, err)
		}
		rows.Close()
		if rowCount < batch {
			break
		}
	}
	return nil
}

func (s *Service) importRow(ctx context.Context, tx *sql.Tx, tbl *tableSchema, payload json.RawMessage, stats sequenceStats) error {
	values, err := decodePayload(tbl, payload)
	if err != nil {
		return fmt.Errorf("decode payload for %s: %w", tbl.Name, err)
	}
	if len(values) == 0 {
		return nil
	}

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	incrementCols := make([]string, 0, 1)
	for _, col := range tbl.Columns {
		val, ok := values[col.Name]
		if !ok {
			continue
		}
		if val == nil && !col.Nullable {
			def, ok := defaultValueForKind(col.Kind)
			if !ok {
				return fmt.Errorf("backup: missing required value for %s.%s", tbl.Name, col.Name)
			}
			val = def
		}
		// lib/pq encodes []byte parameters as bytea, which a jsonb
		// column rejects; json travels as text on postgres.
		if raw, ok := val.(json.RawMessage); ok && s.driver == "postgres" {
			val = string(raw)
		}
		cols = append(cols, col.Name)
		args = append(args, val)
		if col.Increment {
			incrementCols = append(incrementCols, col.Name)
		}
	}

	if len(cols) == 0 {
		return nil
	}

	placeholders := buildPlaceholders(s.driver, len(cols))
	if len(placeholders) != len(cols) {
		return fmt.Errorf("unsupported driver %q for placeholders", s.driver)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(tbl.Name),
		strings.Join(quoteAll(cols), ", "),
		strings.Join(placeholders, ", "),
	)

	upsert, err := buildUpsertClause(s.driver, tbl, cols)
	if err != nil {
		return err
	}
	query := insert + upsert

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", tbl.Name, err)
	}

	for _, colName := range incrementCols {
		if val, ok := values[colName]; ok {
			if max, ok := tryToInt64(val); ok {
				key := sequenceKey{Table: tbl.Name, Column: colName}
				if max > stats[key] {
					stats[key] = max
				}
			}
		}
	}
	return nil
}

// selectTables resolves the requested table names against the schema.
// Declaration order is preserved either way so that parents stay ahead
// of the rows referencing them.
func (s *Service) selectTables(requested []string) ([]*tableSchema, error) {
	if len(requested) == 0 {
		tbls := make([]*tableSchema, len(s.tables))
		copy(tbls, s.tables)
		return tbls, nil
	}
	set := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		n := strings.TrimSpace(strings.ToLower(name))
		if n == "" {
			continue
		}
		if _, ok := s.tableIndex[n]; !ok {
			return nil, fmt.Errorf("backup: unsupported table %q", name)
		}
		set[n] = struct{}{}
	}
	if len(set) == 0 {
		return nil, errNoTablesSelected
	}
	tbls := make([]*tableSchema, 0, len(set))
	for _, tbl := range s.tables {
		if _, ok := set[tbl.Name]; ok {
			tbls = append(tbls, tbl)
		}
	}
	return tbls, nil
}

func (s *Service) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if s.driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return db, nil
}

func (s *Service) countTableRows(ctx context.Context, db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))
	var count int
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) convertRow(tbl *tableSchema, columns []string, values []any) (map[string]any, error) {
	result := make(map[string]any, len(columns))
	for idx, name := range columns {
		colInfo := tbl.column(name)
		if colInfo == nil {
			return nil, fmt.Errorf("column %s not found in table %s", name, tbl.Name)
		}
		val, err := convertDBValue(colInfo, values[idx])
		if err != nil {
			return nil, fmt.Errorf("convert %s.%s: %w", tbl.Name, name, err)
		}
		result[name] = val
	}
	return result, nil
}

func buildPlaceholders(driver string, count int) []string {
	switch driver {
	case "postgres":
		holders := make([]string, count)
		for i := 0; i < count; i++ {
			holders[i] = fmt.Sprintf("$%d", i+1)
		}
		return holders
	case "sqlite3":
		holders := make([]string, count)
		for i := 0; i < count; i++ {
			holders[i] = "?"
		}
		return holders
	default:
		return nil
	}
}

func buildUpsertClause(driver string, tbl *tableSchema, insertCols []string) (string, error) {
	conflictCols := tbl.conflictColumns()
	if len(conflictCols) == 0 {
		return "", nil
	}
	updateCols := difference(insertCols, conflictCols)

	switch driver {
	case "postgres":
		if len(updateCols) == 0 {
			return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(quoteAll(conflictCols), ", ")), nil
		}
		assignments := make([]string, len(updateCols))
		for i, col := range updateCols {
			assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(col), pq.QuoteIdentifier(col))
		}
		return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(quoteAll(conflictCols), ", "),
			strings.Join(assignments, ", "),
		), nil
	case "sqlite3":
		if len(updateCols) == 0 {
			return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(quoteAll(conflictCols), ", ")), nil
		}
		assignments := make([]string, len(updateCols))
		for i, col := range updateCols {
			assignments[i] = fmt.Sprintf("%s = excluded.%s", pq.QuoteIdentifier(col), pq.QuoteIdentifier(col))
		}
		return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(quoteAll(conflictCols), ", "),
			strings.Join(assignments, ", "),
		), nil
	default:
		return "", fmt.Errorf("backup: unsupported driver %q for upsert", driver)
	}
}

func buildOrderByClause(tbl *tableSchema) string {
	var cols []string
	if len(tbl.PrimaryKey) > 0 {
		cols = append(cols, tbl.PrimaryKey...)
	} else {
		cols = tbl.columnNames()
	}
	if len(cols) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(quoteAll(cols), ", ")
}

// quoteAll double-quotes identifiers for both supported drivers; the
// schema contains reserved words (the values table, the primary column).
func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = pq.QuoteIdentifier(name)
	}
	return quoted
}

func tableNames(tables []*tableSchema) []string {
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	return names
}

func difference(slice []string, exclude []string) []string {
	set := make(map[string]struct{}, len(exclude))
	for _, item := range exclude {
		set[item] = struct{}{}
	}
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if _, ok := set[item]; !ok {
			result = append(result, item)
		}
	}
	return result
}

func writeRecord(w io.Writer, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	return nil
}

func (s *Service) syncSequences(ctx context.Context, db *sql.DB, stats sequenceStats) error {
	if len(stats) == 0 {
		return nil
	}
	if s.driver != "postgres" {
		return nil
	}
	for key, maxVal := range stats {
		if maxVal <= 0 {
			continue
		}
		// The first setval argument is parsed as an identifier inside
		// the literal, so it carries the quoted table name. The second
		// is matched against the column name exactly as written.
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), GREATEST(%d, (SELECT COALESCE(MAX(%s), 0) FROM %s)))",
			pq.QuoteIdentifier(key.Table),
			key.Column,
			maxVal,
			pq.QuoteIdentifier(key.Column),
			pq.QuoteIdentifier(key.Table),
		)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("sync sequence for %s.%s: %w", key.Table, key.Column, err)
		}
	}
	return nil
}
