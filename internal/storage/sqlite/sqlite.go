// Package sqlite implements the storage interfaces on an embedded SQLite
// database. Credential secrets are encrypted before they hit disk.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelgate/modelgate/internal/storage/encryption"
	_ "modernc.org/sqlite"
)

// Table definitions. Executed in order on every open; all statements are
// idempotent so upgrades that add tables need no migration machinery.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		id          TEXT PRIMARY KEY,
		provider    TEXT NOT NULL,
		name        TEXT NOT NULL UNIQUE,
		data        TEXT NOT NULL,
		is_default  INTEGER DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_creds_provider ON credentials(provider)`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id                TEXT PRIMARY KEY,
		request_id        TEXT NOT NULL,
		route             TEXT NOT NULL,
		model             TEXT,
		provider          TEXT NOT NULL,
		prompt_tokens     INTEGER DEFAULT 0,
		completion_tokens INTEGER DEFAULT 0,
		total_tokens      INTEGER DEFAULT 0,
		is_streaming      INTEGER DEFAULT 0,
		status_code       INTEGER,
		error_message     TEXT,
		duration_ms       INTEGER,
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_created ON request_logs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_provider ON request_logs(provider)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_route ON request_logs(route)`,

	`CREATE TABLE IF NOT EXISTS usage_daily (
		date              TEXT NOT NULL,
		provider          TEXT NOT NULL,
		model             TEXT NOT NULL,
		request_count     INTEGER DEFAULT 0,
		prompt_tokens     INTEGER DEFAULT 0,
		completion_tokens INTEGER DEFAULT 0,
		total_tokens      INTEGER DEFAULT 0,
		error_count       INTEGER DEFAULT 0,
		PRIMARY KEY (date, provider, model)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_date ON usage_daily(date)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		key_hash     TEXT NOT NULL,
		key_prefix   TEXT NOT NULL,
		scopes       TEXT NOT NULL,
		rate_limit   INTEGER DEFAULT 0,
		is_active    INTEGER DEFAULT 1,
		last_used_at DATETIME,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at   DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(key_prefix)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_active ON api_keys(is_active)`,

	`CREATE TABLE IF NOT EXISTS admin_settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Storage is the SQLite-backed implementation of storage.Storage.
type Storage struct {
	db        *sql.DB
	encryptor encryption.Encryptor
	mu        sync.RWMutex
	closed    bool
}

// New opens the database at dbPath with the default machine-derived
// encryption key.
func New(dbPath string) (*Storage, error) {
	enc, err := encryption.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	return NewWithEncryptor(dbPath, enc)
}

// NewWithEncryptor opens the database with a caller-provided encryptor
// (used by tests to pin the key).
func NewWithEncryptor(dbPath string, enc encryption.Encryptor) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, encryptor: enc}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s, nil
}

// Close shuts the connection down. Further calls on the Storage return
// ErrStorageClosed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// generateID returns a short prefixed unique id, e.g. "log_3fa4b21c".
func generateID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}

// boolToInt converts a bool to the 0/1 form sqlite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// affectedOrNotFound maps an Exec that touched zero rows to ErrNotFound.
func affectedOrNotFound(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
