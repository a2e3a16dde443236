package sqlite

import "database/sql"

const adminPasswordKey = "admin_password_hash"

// GetSetting retrieves a value from admin_settings, or "" if unset.
func (s *Storage) GetSetting(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStorageClosed
	}

	var value string
	err := s.db.QueryRow(
		"SELECT value FROM admin_settings WHERE key = ?", key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

// SetSetting stores a value in admin_settings.
func (s *Storage) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO admin_settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)

	return err
}

// GetAdminPasswordHash retrieves the stored admin password hash
func (s *Storage) GetAdminPasswordHash() (string, error) {
	return s.GetSetting(adminPasswordKey)
}

// SetAdminPasswordHash stores the admin password hash
func (s *Storage) SetAdminPasswordHash(hash string) error {
	return s.SetSetting(adminPasswordKey, hash)
}

// HasAdminPassword checks if an admin password has been configured
func (s *Storage) HasAdminPassword() (bool, error) {
	hash, err := s.GetAdminPasswordHash()
	if err != nil {
		return false, err
	}
	return hash != "", nil
}
