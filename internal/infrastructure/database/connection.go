package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moyogo/clld/internal/infrastructure/config"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
)

// Open opens a gorm handle for the given driver ("postgres" or
// "sqlite3") with the standard configuration and the history plugin
// installed. Foreign keys are enforced on both drivers.
func Open(driver, dsn string, logSQL bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite3":
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	level := logger.Silent
	if logSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(level),
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Use(history.New()); err != nil {
		return nil, fmt.Errorf("install history plugin: %w", err)
	}
	return db, nil
}

// sqliteDSN appends the connection options every pooled connection
// needs. A PRAGMA statement would only reach the connection that runs
// it, so the options ride on the DSN instead.
func sqliteDSN(dsn string) string {
	const opts = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if strings.ContainsRune(dsn, '?') {
		return dsn + "&" + opts
	}
	return dsn + "?" + opts
}

// NewConnection opens the configured database and tunes the
// connection pool. The returned cleanup closes the pool.
func NewConnection(cfg *config.Config) (*gorm.DB, func(), error) {
	driver := cfg.DatabaseDriver()
	db, err := Open(driver, cfg.DatabaseURL(), cfg.Database.LogSQL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, func() { _ = sqlDB.Close() }, fmt.Errorf("ping database: %w", err)
	}
	return db, func() { _ = sqlDB.Close() }, nil
}
