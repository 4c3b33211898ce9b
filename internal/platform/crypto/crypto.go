// Package crypto seals free text before it is written to the database.
//
// Sealed values carry a version prefix so rows written before a key was
// configured stay readable. Plain text that already starts with the reserved
// "enc:" namespace is escaped on write, so every stored value round-trips.
// Each sealed value is bound to its row through the associated data, so a
// ciphertext copied onto another row fails to open.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	reservedPrefix = "enc:"
	sealedPrefix   = reservedPrefix + "v1:"
	escapedPrefix  = reservedPrefix + "raw:"
)

type Service interface {
	Seal(plaintext string, aad []byte) (string, error)
	Open(stored string, aad []byte) (string, error)
}

// IsSealed reports whether stored was produced by Seal.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}

// escape marks plain text that would otherwise be mistaken for a sealed value.
func escape(plaintext string) string {
	if strings.HasPrefix(plaintext, reservedPrefix) {
		return escapedPrefix + plaintext
	}
	return plaintext
}

// unescape reverses escape. ok is false for values that need a key to open.
func unescape(stored string) (string, bool) {
	if plain, found := strings.CutPrefix(stored, escapedPrefix); found {
		return plain, true
	}
	return stored, !IsSealed(stored)
}

// NoopService stores text without encryption (dev/test mode). Sealed values
// are returned as stored since there is no key to open them.
type NoopService struct{}

func (NoopService) Seal(plaintext string, _ []byte) (string, error) { return escape(plaintext), nil }

func (NoopService) Open(stored string, _ []byte) (string, error) {
	plain, _ := unescape(stored)
	return plain, nil
}

type AESGCMService struct {
	gcm cipher.AEAD
}

// NewAESGCMService creates an AES-256-GCM service from a 64-character hex key.
func NewAESGCMService(hexKey string) (*AESGCMService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMService{gcm: gcm}, nil
}

// Seal encrypts plaintext. The empty string is stored as-is.
func (s *AESGCMService) Seal(plaintext string, aad []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext || tag
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), aad)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value written by Seal and returns plain text unchanged.
// A value that only looks sealed, such as plain text stored before escaping
// existed, is returned as stored. A well-formed value that fails
// authentication is an error.
func (s *AESGCMService) Open(stored string, aad []byte) (string, error) {
	if plain, ok := unescape(stored); ok {
		return plain, nil
	}

	nonceSize := s.gcm.NonceSize()
	buffer, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(buffer) < nonceSize+s.gcm.Overhead() {
		return stored, nil
	}

	nonce, ciphertext := buffer[:nonceSize], buffer[nonceSize:]
	plain, err := s.gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// New returns an AES-GCM service for hexKey, or a NoopService when hexKey is empty.
func New(hexKey string) (Service, error) {
	if hexKey == "" {
		return NoopService{}, nil
	}
	return NewAESGCMService(hexKey)
}
