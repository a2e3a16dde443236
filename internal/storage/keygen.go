package storage

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// APIKeyPrefix marks every modelgate client key.
	APIKeyPrefix = "mg_"
	// APIKeyLength is the number of random characters after the prefix.
	APIKeyLength = 64
	// APIKeyPrefixLen is the identifying prefix length: "mg_" plus the first
	// 8 random characters, used for storage lookup before hash verification.
	APIKeyPrefixLen = 11
)

const keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateAPIKey returns a fresh client key: "mg_" followed by 64 random
// base62 characters. Random bytes are mapped through rejection sampling so
// every character is uniformly distributed.
func GenerateAPIKey() (string, error) {
	var sb strings.Builder
	sb.WriteString(APIKeyPrefix)

	// 62 does not divide 256; reject bytes >= 248 to keep the draw uniform
	const limit = byte(248)
	buf := make([]byte, APIKeyLength*2)
	for sb.Len() < len(APIKeyPrefix)+APIKeyLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			sb.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
			if sb.Len() == len(APIKeyPrefix)+APIKeyLength {
				break
			}
		}
	}

	return sb.String(), nil
}

// ExtractKeyPrefix returns the identifying prefix of a key, or the whole key
// when it is shorter than a full prefix.
func ExtractKeyPrefix(key string) string {
	if len(key) < APIKeyPrefixLen {
		return key
	}
	return key[:APIKeyPrefixLen]
}
