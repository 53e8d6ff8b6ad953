// ABOUTME: SQLite store for the command host.
// ABOUTME: Opens the database, applies versioned migrations and exposes the connection.

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/2389/rokcore/internal/logging"
)

// Migration version constants
const (
	MigrationV1 = 1 // command_invocations and command_overrides
	MigrationV2 = 2 // players
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

// timestampLayout matches SQLite's CURRENT_TIMESTAMP
const timestampLayout = "2006-01-02 15:04:05"

type Store struct {
	db     *sql.DB
	logger logging.Logger
}

type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     MigrationV1,
		description: "Create command_invocations and command_overrides tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS command_invocations (
				id TEXT PRIMARY KEY,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				plugin_name TEXT DEFAULT '',
				command TEXT NOT NULL,
				caller_id TEXT DEFAULT '',
				args TEXT DEFAULT '[]',
				duration_us INTEGER DEFAULT 0,
				fault TEXT DEFAULT ''
			)`,
			"CREATE INDEX IF NOT EXISTS idx_command_invocations_timestamp ON command_invocations(timestamp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_command_invocations_plugin ON command_invocations(plugin_name, timestamp DESC)",
			`CREATE TABLE IF NOT EXISTS command_overrides (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				command TEXT NOT NULL,
				plugin_name TEXT DEFAULT '',
				previous_owner TEXT DEFAULT '',
				kind TEXT NOT NULL
			)`,
			"CREATE INDEX IF NOT EXISTS idx_command_overrides_command ON command_overrides(command)",
		},
	},
	{
		version:     MigrationV2,
		description: "Create players table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS players (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
}

// New opens the database at dbPath and migrates it to CurrentSchemaVersion
func New(dbPath string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDisabledLogger()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer keeps the registry's audit trail in order
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion returns the highest applied migration
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	s.logger.Debug("database schema version", "current", current, "target", CurrentSchemaVersion)

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		s.logger.Info("applied migration", "version", m.version, "description", m.description)
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, description) VALUES (?, ?)", m.version, m.description); err != nil {
		return err
	}
	return tx.Commit()
}
