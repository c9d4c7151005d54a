// Package storage holds the persistence layer for posts.
//
// The default backend is an embedded SQLite database opened in WAL mode with
// a single writer connection. A Postgres backend with the same contract lives
// in the postgres subpackage.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// sqliteTimeLayout is the layout used for every TEXT timestamp column.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Compile-time interface check.
var _ PostStore = (*Store)(nil)

// Store is the SQLite implementation of PostStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// OpenDatabase opens (or creates) a SQLite database at the given path with
// WAL journaling, a 5-second busy timeout and foreign keys enabled. Parent
// directories are created if missing.
//
// The pool is capped at one connection: SQLite allows a single writer, and
// ":memory:" databases are per-connection.
func OpenDatabase(path string) (*sql.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %q: %w", path, err)
	}

	slog.Info("opened sqlite database", "path", path)
	return db, nil
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations/NNN_name.sql files that are
// not yet recorded in schema_migrations, in version order, one transaction
// per file.
func RunMigrations(db *sql.DB) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := db.Exec(createTracker); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, mf := range files {
		if applied[mf.version] {
			continue
		}

		sqlBytes, err := migrationsFS.ReadFile("migrations/" + mf.filename)
		if err != nil {
			return fmt.Errorf("reading migration file %q: %w", mf.filename, err)
		}

		if err := applyMigration(db, mf.version, string(sqlBytes)); err != nil {
			return fmt.Errorf("applying migration %s: %w", mf.filename, err)
		}

		slog.Info("applied migration", "version", mf.version, "file", mf.filename)
	}

	return nil
}

type migrationFile struct {
	version  int
	filename string
}

// migrationFiles lists the embedded migrations sorted by version. Files
// without a numeric prefix are ignored.
func migrationFiles() ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if v := parseVersion(entry.Name()); v > 0 {
			files = append(files, migrationFile{version: v, filename: entry.Name()})
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].version < files[j].version
	})
	return files, nil
}

// parseVersion extracts the version from a filename like "001_posts.sql".
func parseVersion(filename string) int {
	prefix, _, _ := strings.Cut(filename, "_")
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return v
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		versions[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migration versions: %w", err)
	}
	return versions, nil
}

// applyMigration runs one migration and records its version atomically.
func applyMigration(db *sql.DB, version int, stmt string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("executing migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// formatTime renders t in UTC with the column layout, so that string
// comparison in SQL matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime parses a SQLite datetime string in the common layouts and
// returns the zero time if none match.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		sqliteTimeLayout,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
