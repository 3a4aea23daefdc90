package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	mu             sync.RWMutex
	gcm            cipher.AEAD
	encryptEnabled bool
)

// Configure sets up AES-256-GCM with key. An empty key disables encryption
// and values are stored in plaintext.
func Configure(key string) error {
	mu.Lock()
	defer mu.Unlock()

	gcm = nil
	encryptEnabled = false

	if key == "" {
		log.Warn().Msg("ENCRYPTION_KEY is not set, OAuth tokens will be stored in plaintext")
		return nil
	}

	if len(key) != 32 {
		return errors.New("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	gcm = aead
	encryptEnabled = true
	return nil
}

// IsEnabled returns whether encryption is enabled
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return encryptEnabled
}

// Encrypt encrypts plaintext using AES-256-GCM
// If encryption is not enabled, returns plaintext as-is
func Encrypt(plaintext string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !encryptEnabled {
		return plaintext, nil
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
// If encryption is not enabled, returns ciphertext as-is (assumes it's plaintext)
func Decrypt(ciphertext string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !encryptEnabled {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// DecryptOrPlain decrypts value, falling back to value itself for rows
// written before encryption was enabled
func DecryptOrPlain(value string) string {
	plaintext, err := Decrypt(value)
	if err != nil {
		return value
	}
	return plaintext
}
