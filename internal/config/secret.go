// Secret encryption for config-carried upstream credentials (the rating
// enricher's third-party API key), adapted from the teacher's
// config/encryption.go CredentialEncryptor. This core has no JWT secret to
// derive a key from (no accounts, no sessions — spec §1 Non-goals), so the
// HKDF input is instead the operator-supplied secret_key config value.
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	secretEncryptionSalt = "catalogcore-config-secrets"
	secretEncryptionInfo = "credential-encryption-v1"
	aesKeySize           = 32
	gcmNonceSize         = 12
)

// ErrEmptySecretKey is returned when a SecretEncryptor is built from an empty key.
var ErrEmptySecretKey = errors.New("config: secret_key cannot be empty")

// SecretEncryptor provides AES-256-GCM encryption for credentials embedded in
// config files or environment variables, keyed off Config.SecretKey via
// HKDF-SHA256 — same construction as the teacher's CredentialEncryptor, minus
// the JWT-secret-as-key-material tie-in this core has no auth layer to supply.
type SecretEncryptor struct {
	gcm cipher.AEAD
}

// NewSecretEncryptor derives an AES-256 key from secretKey and builds the
// GCM cipher used by Encrypt/Decrypt.
func NewSecretEncryptor(secretKey string) (*SecretEncryptor, error) {
	if secretKey == "" {
		return nil, ErrEmptySecretKey
	}
	key, err := deriveSecretKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("config: derive secret key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("config: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("config: new gcm: %w", err)
	}
	return &SecretEncryptor{gcm: gcm}, nil
}

func deriveSecretKey(secretKey string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secretKey), []byte(secretEncryptionSalt), []byte(secretEncryptionInfo))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt returns base64(nonce || ciphertext || tag).
func (e *SecretEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("config: generate nonce: %w", err)
	}
	ciphertext := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (e *SecretEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("config: base64 decode ciphertext: %w", err)
	}
	minLength := gcmNonceSize + e.gcm.Overhead()
	if len(data) < minLength {
		return "", errors.New("config: ciphertext too short")
	}
	nonce, encrypted := data[:gcmNonceSize], data[gcmNonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return "", errors.New("config: decryption failed: invalid ciphertext or authentication tag")
	}
	return string(plaintext), nil
}

// MaskCredential shows only the last 4 characters of a credential, for safe
// inclusion in startup logs.
func MaskCredential(credential string) string {
	if len(credential) <= 4 {
		if credential == "" {
			return ""
		}
		return "****"
	}
	return "****" + credential[len(credential)-4:]
}
