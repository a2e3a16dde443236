package sqlite

import "errors"

// Sentinel errors for storage operations. Callers compare with errors.Is;
// the facade package re-exports these under the same names.
var (
	ErrNotFound        = errors.New("sqlite: row not found")
	ErrDuplicateKey    = errors.New("sqlite: duplicate key")
	ErrInvalidInput    = errors.New("sqlite: invalid input")
	ErrStorageClosed   = errors.New("sqlite: storage closed")
	ErrEncryptionError = errors.New("sqlite: credential encryption failed")
)
