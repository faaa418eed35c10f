package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Open opens the SQLite grant database and creates its tables
func Open(dbPath string, logger zerolog.Logger) (*sql.DB, error) {
	// Ensure directory exists
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases shared between queries
	database.SetMaxOpenConns(1)

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("component", "db").Str("path", dbPath).Msg("database initialized")
	return database, nil
}

// createTables creates all necessary tables
func createTables(database *sql.DB) error {
	createGrantsTable := `
	CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		key TEXT UNIQUE NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		roles TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		use_count INTEGER NOT NULL DEFAULT 0,
		last_used DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := database.Exec(createGrantsTable); err != nil {
		return fmt.Errorf("failed to create grants table: %w", err)
	}

	createIndex := `CREATE INDEX IF NOT EXISTS idx_grants_key ON grants(key);`
	if _, err := database.Exec(createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}
