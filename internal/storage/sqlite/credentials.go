package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelgate/modelgate/internal/storage/models"
)

// credentialCols is the column order every credentials SELECT and scan shares.
const credentialCols = "id, provider, name, data, is_default, created_at, updated_at"

// encryptData serializes and encrypts a credential's secret fields.
func (s *Storage) encryptData(data map[string]string) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	encrypted, err := s.encryptor.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionError, err)
	}
	return encrypted, nil
}

// decryptData decrypts and deserializes a credential's secret fields.
func (s *Storage) decryptData(blob string) (map[string]string, error) {
	plaintext, err := s.encryptor.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionError, err)
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(plaintext), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionError, err)
	}
	return data, nil
}

// readCredential scans row metadata plus the still-encrypted data blob.
// Decryption is the caller's step so list iteration can skip bad blobs
// while keeping the row's identity for logging.
func readCredential(scan func(dest ...any) error) (*models.Credential, string, error) {
	var (
		cred      models.Credential
		isDefault int
		blob      string
	)
	if err := scan(&cred.ID, &cred.Provider, &cred.Name, &blob, &isDefault,
		&cred.CreatedAt, &cred.UpdatedAt); err != nil {
		return nil, "", err
	}
	cred.IsDefault = isDefault == 1
	return &cred, blob, nil
}

// getCredentialWhere runs a single-row credential lookup and decrypts the
// result. Must be called with the read lock held.
func (s *Storage) getCredentialWhere(where string, args ...any) (*models.Credential, error) {
	row := s.db.QueryRow("SELECT "+credentialCols+" FROM credentials WHERE "+where, args...)
	cred, blob, err := readCredential(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cred.Data, err = s.decryptData(blob); err != nil {
		return nil, err
	}
	return cred, nil
}

// CreateCredential encrypts and stores a new credential. Marking it default
// demotes any existing default for the same provider.
func (s *Storage) CreateCredential(cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	if cred.Provider == "" || cred.Name == "" || len(cred.Data) == 0 {
		return ErrInvalidInput
	}
	if cred.ID == "" {
		cred.ID = generateID("cred")
	}

	encrypted, err := s.encryptData(cred.Data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	if cred.IsDefault {
		if _, err := s.db.Exec(
			"UPDATE credentials SET is_default = 0 WHERE provider = ?", cred.Provider,
		); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO credentials (id, provider, name, data, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cred.ID, cred.Provider, cred.Name, encrypted, boolToInt(cred.IsDefault), cred.CreatedAt, cred.UpdatedAt)
	return err
}

// GetCredential looks a credential up by id.
func (s *Storage) GetCredential(id string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}
	return s.getCredentialWhere("id = ?", id)
}

// GetCredentialByName looks a credential up by its unique name.
func (s *Storage) GetCredentialByName(name string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}
	return s.getCredentialWhere("name = ?", name)
}

// GetDefaultCredential returns the provider's default credential.
func (s *Storage) GetDefaultCredential(provider string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}
	return s.getCredentialWhere("provider = ? AND is_default = 1", provider)
}

// ListCredentials returns all credentials, newest first. Rows whose data can
// no longer be decrypted (e.g. after an encryption key change) are skipped,
// not fatal.
func (s *Storage) ListCredentials() ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query("SELECT " + credentialCols + " FROM credentials ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		cred, blob, err := readCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		if cred.Data, err = s.decryptData(blob); err != nil {
			slog.Warn("skipping undecryptable credential", "id", cred.ID, "name", cred.Name)
			continue
		}
		credentials = append(credentials, cred)
	}
	return credentials, rows.Err()
}

// UpdateCredential re-encrypts and rewrites a credential.
func (s *Storage) UpdateCredential(cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	if cred.ID == "" {
		return ErrInvalidInput
	}

	encrypted, err := s.encryptData(cred.Data)
	if err != nil {
		return err
	}
	cred.UpdatedAt = time.Now().UTC()

	if cred.IsDefault {
		if _, err := s.db.Exec(
			"UPDATE credentials SET is_default = 0 WHERE provider = ? AND id != ?",
			cred.Provider, cred.ID,
		); err != nil {
			return err
		}
	}

	return affectedOrNotFound(s.db.Exec(`
		UPDATE credentials
		SET provider = ?, name = ?, data = ?, is_default = ?, updated_at = ?
		WHERE id = ?
	`, cred.Provider, cred.Name, encrypted, boolToInt(cred.IsDefault), cred.UpdatedAt, cred.ID))
}

// DeleteCredential removes a credential by id.
func (s *Storage) DeleteCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	return affectedOrNotFound(s.db.Exec("DELETE FROM credentials WHERE id = ?", id))
}

// SetDefaultCredential promotes one credential to provider default, demoting
// the rest of its provider's rows.
func (s *Storage) SetDefaultCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	var provider string
	err := s.db.QueryRow("SELECT provider FROM credentials WHERE id = ?", id).Scan(&provider)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err = s.db.Exec("UPDATE credentials SET is_default = 0 WHERE provider = ?", provider); err != nil {
		return err
	}
	_, err = s.db.Exec("UPDATE credentials SET is_default = 1, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	return err
}
