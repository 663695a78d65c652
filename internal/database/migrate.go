package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := migrationNames()
	if err != nil {
		return err
	}

	var appliedList []string
	if err := db.Select(&appliedList, "SELECT filename FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(appliedList))
	for _, name := range appliedList {
		applied[name] = true
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationFiles, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", file, err)
		}
		for i, stmt := range splitStatements(string(content)) {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to execute migration %s (statement %d): %w", file, i+1, err)
			}
		}
		if _, err := tx.Exec(
			db.Rebind("INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)"),
			file, time.Now().UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		log.Printf("[Database] Migration applied: %s", file)
	}

	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits a migration on semicolons outside string literals
// and drops "--" comment lines.
func splitStatements(sql string) []string {
	var (
		statements []string
		current    strings.Builder
		inString   bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(sql, "\n") {
		if !inString && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if ch == '\'' {
				inString = !inString
			}
			if ch == ';' && !inString {
				flush()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}
	flush()

	return statements
}
