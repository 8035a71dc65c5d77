package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lewtec/geogallery/internal/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const filePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DSN adds the connection pragmas to path, keeping any query it already has
func DSN(path string) string {
	if path == MemoryPath {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + filePragmas
}

// Open opens the SQLite database at path. The file is created if missing.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, apperr.New(apperr.StorageUnavailable, "no_database_path", "database path is empty")
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.StorageUnavailable, "open_failed", fmt.Sprintf("while opening database '%s'", path))
	}

	if path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Wrap(err, apperr.StorageUnavailable, "open_failed", fmt.Sprintf("while opening database '%s'", path))
	}

	return db, nil
}

// Migrate applies every pending migration. Running it on an up-to-date
// database does nothing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return apperr.Wrap(err, apperr.StorageUnavailable, "migrations_unreadable", "while reading embedded migrations")
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return apperr.Wrap(err, apperr.StorageUnavailable, "migrate_failed", "while preparing migration driver")
	}

	// m.Close would close db too, so the migrator is just dropped when done
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return apperr.Wrap(err, apperr.StorageUnavailable, "migrate_failed", "while creating migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperr.Wrap(err, apperr.StorageUnavailable, "migrate_failed", "while applying migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return apperr.Wrap(err, apperr.StorageUnavailable, "migrate_failed", "while reading schema version")
	}
	log.Ctx(ctx).Debug().Uint("version", version).Bool("dirty", dirty).Msg("database: schema up to date")
	return nil
}

// OpenAndMigrate opens path and brings its schema up to date
func OpenAndMigrate(ctx context.Context, path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// IsConstraintError reports whether err comes from a violated SQLite constraint
func IsConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// extended codes keep the primary code in the low byte
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
