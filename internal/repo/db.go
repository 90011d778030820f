// Package repo implements the persistence layer of the translation service,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func sqliteDSN(path string) string {
	q := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		q = append(q, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(q, "&")
}

// OpenSQLite opens (or creates) a SQLite database. PRAGMAs travel in the DSN
// so every connection of the pool gets them.
func OpenSQLite(path string, opts ...gorm.Option) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	if len(opts) == 0 {
		opts = []gorm.Option{&gorm.Config{}}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), opts...)
	if err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates the sample entity tables, the shared cache and
// idempotency tables, and the translation table under the configured name.
// Translation indexes are named after their table.
func AutoMigrate(db *gorm.DB, translationTable string) error {
	if translationTable == "" {
		translationTable = domain.DefaultTranslationTable
	}
	if !domain.ValidIdentifier(translationTable) {
		return fmt.Errorf("invalid translation table name %q", translationTable)
	}
	if err := db.AutoMigrate(&domain.Post{}, &domain.Comment{}, &domain.CacheEntry{}, &domain.IdempotencyKey{}); err != nil {
		return err
	}
	if err := db.Table(translationTable).AutoMigrate(&domain.Translation{}); err != nil {
		return err
	}
	for _, stmt := range translationIndexes(translationTable) {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// TranslationKeyIndex names the unique (entity_type, entity_id, field,
// locale) index of table.
func TranslationKeyIndex(table string) string { return table + "_ux_key" }

func translationIndexes(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q (entity_type, entity_id, field, locale)`, TranslationKeyIndex(table), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (entity_type, entity_id)`, table+"_idx_owner", table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (locale)`, table+"_idx_locale", table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (updated_at)`, table+"_idx_updated", table),
	}
}
