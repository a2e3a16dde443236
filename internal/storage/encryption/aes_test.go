package encryption

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	enc, err := NewWithKey(key)
	if err != nil {
		t.Fatalf("NewWithKey: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple secret", "sk-test-1234567890"},
		{"empty string", ""},
		{"unicode", "clé-secrète-日本語"},
		{"json blob", `{"api_key":"sk-abc","project_id":"p1"}`},
		{"long value", strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if ciphertext == tt.plaintext && tt.plaintext != "" {
				t.Error("ciphertext equals plaintext")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if decrypted != tt.plaintext {
				t.Errorf("roundtrip mismatch: got %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	enc, err := NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewWithKey: %v", err)
	}

	first, err := enc.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := enc.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Random nonces mean identical plaintexts never share ciphertext
	if first == second {
		t.Error("expected distinct ciphertexts for identical plaintexts")
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	enc, err := NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewWithKey: %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "YWJj"},
		{"tampered", func() string {
			c, _ := enc.Encrypt("secret")
			return c[:len(c)-4] + "AAAA"
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.input); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	enc1, _ := NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	enc2, _ := NewWithKey([]byte("fedcba9876543210fedcba9876543210"))

	ciphertext, err := enc1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Error("expected decryption failure with wrong key")
	}
}

func TestNewWithKeyRejectsBadLength(t *testing.T) {
	if _, err := NewWithKey([]byte("short")); err == nil {
		t.Error("expected error for short key")
	}
}
