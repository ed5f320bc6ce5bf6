package database

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert hits the unique (user, word)
	// key or a conditional update matched no row. Callers recover by
	// re-reading and retrying.
	ErrConflict = errors.New("record conflict")
)

// Connect opens a database connection for the given driver ("sqlite3" or
// "postgres") and bootstraps the schema.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	statements := sqliteSchema
	if db.DriverName() == "postgres" {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		words_per_day INTEGER NOT NULL DEFAULT 10,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		word_id INTEGER NOT NULL,
		easiness_factor NUMERIC NOT NULL DEFAULT 2.50,
		interval_days INTEGER NOT NULL DEFAULT 1,
		repetition_count INTEGER NOT NULL DEFAULT 0,
		next_review_date TIMESTAMP NOT NULL,
		last_reviewed_at TIMESTAMP,
		total_reviews INTEGER NOT NULL DEFAULT 0,
		correct_reviews INTEGER NOT NULL DEFAULT 0,
		consecutive_correct INTEGER NOT NULL DEFAULT 0,
		quality_scores TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'new',
		is_archived BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (word_id) REFERENCES words(id),
		UNIQUE(user_id, word_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_progress_due
		ON user_progress(user_id, next_review_date)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		words_per_day INTEGER NOT NULL DEFAULT 10,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id BIGSERIAL PRIMARY KEY,
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		word_id BIGINT NOT NULL REFERENCES words(id),
		easiness_factor NUMERIC(4,2) NOT NULL DEFAULT 2.50,
		interval_days INTEGER NOT NULL DEFAULT 1,
		repetition_count INTEGER NOT NULL DEFAULT 0,
		next_review_date TIMESTAMPTZ NOT NULL,
		last_reviewed_at TIMESTAMPTZ,
		total_reviews INTEGER NOT NULL DEFAULT 0,
		correct_reviews INTEGER NOT NULL DEFAULT 0,
		consecutive_correct INTEGER NOT NULL DEFAULT 0,
		quality_scores JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'new',
		is_archived BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE(user_id, word_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_progress_due
		ON user_progress(user_id, next_review_date)`,
}
