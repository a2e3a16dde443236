package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelgate/modelgate/internal/storage/models"
)

// apiKeyCols is the column order every api_keys SELECT and scan shares.
const apiKeyCols = "id, name, key_hash, key_prefix, scopes, rate_limit, is_active, last_used_at, created_at, expires_at"

// scanAPIKey reads one api_keys row through the given scan function, which
// lets it serve both QueryRow and Rows iteration.
func scanAPIKey(scan func(dest ...any) error) (*models.ClientAPIKey, error) {
	var (
		key                  models.ClientAPIKey
		scopesJSON           string
		lastUsedAt, expireAt sql.NullTime
	)

	if err := scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &scopesJSON,
		&key.RateLimit, &key.IsActive, &lastUsedAt, &key.CreatedAt, &expireAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	if expireAt.Valid {
		key.ExpiresAt = &expireAt.Time
	}
	return &key, nil
}

// collectAPIKeys drains rows into a slice.
func collectAPIKeys(rows *sql.Rows) ([]*models.ClientAPIKey, error) {
	var keys []*models.ClientAPIKey
	for rows.Next() {
		key, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// CreateAPIKey inserts a new key record, assigning an id and creation time
// when the caller left them zero.
func (s *Storage) CreateAPIKey(key *models.ClientAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return err
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	key.CreatedAt = time.Now()

	_, err = s.db.Exec(`
		INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, rate_limit, is_active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key.ID, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON),
		key.RateLimit, key.IsActive, key.ExpiresAt, key.CreatedAt)
	return err
}

// GetAPIKey looks a key up by id.
func (s *Storage) GetAPIKey(id string) (*models.ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	row := s.db.QueryRow("SELECT "+apiKeyCols+" FROM api_keys WHERE id = ?", id)
	key, err := scanAPIKey(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return key, err
}

// GetAPIKeyByPrefix returns every key sharing a prefix. Prefixes are short
// enough to collide, so auth verifies the full secret against each match.
func (s *Storage) GetAPIKeyByPrefix(prefix string) ([]*models.ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query("SELECT "+apiKeyCols+" FROM api_keys WHERE key_prefix = ?", prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAPIKeys(rows)
}

// ListAPIKeys returns all keys, newest first.
func (s *Storage) ListAPIKeys() ([]*models.ClientAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query("SELECT " + apiKeyCols + " FROM api_keys ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAPIKeys(rows)
}

// UpdateAPIKey rewrites a key's mutable fields.
func (s *Storage) UpdateAPIKey(key *models.ClientAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return err
	}

	return affectedOrNotFound(s.db.Exec(`
		UPDATE api_keys
		SET name = ?, key_hash = ?, key_prefix = ?, scopes = ?, rate_limit = ?, is_active = ?, expires_at = ?
		WHERE id = ?
	`, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON),
		key.RateLimit, key.IsActive, key.ExpiresAt, key.ID))
}

// DeleteAPIKey removes a key by id.
func (s *Storage) DeleteAPIKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	return affectedOrNotFound(s.db.Exec("DELETE FROM api_keys WHERE id = ?", id))
}

// UpdateAPIKeyLastUsed stamps last_used_at. Called from auth on a background
// goroutine, so a missing row is not an error.
func (s *Storage) UpdateAPIKeyLastUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec("UPDATE api_keys SET last_used_at = ? WHERE id = ?", time.Now(), id)
	return err
}
