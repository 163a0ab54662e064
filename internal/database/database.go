package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens (and creates if needed) a SQLite database.
// Accepts a plain path or a sqlite:// DSN; ":memory:" gives a private in-memory database.
func New(dsn string) (*DB, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("empty SQLite path")
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✅ SQLite database opened: %s", path)

	return &DB{db}, nil
}

// Initialize creates all required tables. Timestamps are stored as Unix nanoseconds.
func (db *DB) Initialize() error {
	log.Println("🔍 Checking database schema...")

	statements := []string{
		`CREATE TABLE IF NOT EXISTS active_sessions (
			user_context TEXT PRIMARY KEY,
			id           TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL,
			duration     REAL NOT NULL DEFAULT 0,
			messages     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_history (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL,
			user_context TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL,
			archived_at  INTEGER,
			duration     REAL NOT NULL DEFAULT 0,
			messages     TEXT NOT NULL,
			UNIQUE (user_context, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_context ON session_history (user_context, seq)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if err := db.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("✅ Database initialized successfully")
	return nil
}

// runMigrations applies additive schema changes to databases created by older builds
func (db *DB) runMigrations() error {
	columnExists := func(table, column string) (bool, error) {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return false, err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				cid       int
				name      string
				ctype     string
				notnull   int
				dfltValue sql.NullString
				pk        int
			)
			if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
				return false, err
			}
			if name == column {
				return true, nil
			}
		}
		return false, rows.Err()
	}

	if exists, err := columnExists("session_history", "archived_at"); err != nil {
		return err
	} else if !exists {
		log.Println("📦 Running migration: Adding archived_at to session_history")
		if _, err := db.Exec("ALTER TABLE session_history ADD COLUMN archived_at INTEGER"); err != nil {
			return fmt.Errorf("failed to add archived_at to session_history: %w", err)
		}
	}
	return nil
}
