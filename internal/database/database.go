package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"outfitsquare/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure-Go SQLite driver, registered as "sqlite"
)

func init() {
	// sqlx only knows the cgo driver name; queries are written with '?' and rebound.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Connect opens the configured database and applies pending migrations.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err = openSQLite(cfg.DBPath)
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		db, err = sqlx.Connect(config.DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[Database] Connected: driver=%s", cfg.DBDriver)
	return db, nil
}

// OpenInMemory returns a migrated, private in-memory SQLite database.
func OpenInMemory() (*sqlx.DB, error) {
	db, err := sqlx.Open(config.DriverSQLite, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database, so pin to one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Connect(config.DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between pool members.
	db.SetMaxOpenConns(1)
	return db, nil
}
