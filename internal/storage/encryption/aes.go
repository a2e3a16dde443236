// Package encryption provides AES-256-GCM encryption for credential data at
// rest.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"runtime"
)

// Encryptor seals and opens sensitive strings.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AES is an AES-256-GCM Encryptor. The AEAD is constructed once; Encrypt and
// Decrypt are safe for concurrent use.
type AES struct {
	aead cipher.AEAD
}

// New builds an encryptor from MODELGATE_ENCRYPTION_KEY when set, otherwise
// from a stable machine-derived key so the database survives restarts without
// any configuration.
func New() (*AES, error) {
	material := os.Getenv("MODELGATE_ENCRYPTION_KEY")
	if material == "" {
		material = machineKeyMaterial()
	}

	sum := sha256.Sum256([]byte(material))
	return NewWithKey(sum[:])
}

// NewWithKey builds an encryptor from a raw 32-byte key.
func NewWithKey(key []byte) (*AES, error) {
	if len(key) != 32 {
		return nil, errors.New("key must be 32 bytes for AES-256")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AES{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh nonce and returns base64(nonce||sealed).
func (e *AES) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input fails authentication.
func (e *AES) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	size := e.aead.NonceSize()
	if len(data) < size {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:size], data[size:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// machineKeyMaterial concatenates stable host identifiers.
func machineKeyMaterial() string {
	material := "modelgate-default-key"
	if hostname, err := os.Hostname(); err == nil {
		material += hostname
	}
	if home, err := os.UserHomeDir(); err == nil {
		material += home
	}
	return material + runtime.GOOS + runtime.GOARCH
}
