// Package secrets encrypts credentials before they reach the record store.
//
// A single application key (32 bytes) is combined with a per-record scope,
// such as a tenant service key, through HKDF-SHA256. The derived key seals
// the value with AES-256-GCM. Ciphertexts carry a version prefix so values
// written before encryption was enabled are still readable.
//
//	c, err := secrets.NewCipher(key)
//	sealed, err := c.Encrypt("acme", password)
//	plain, err := c.Decrypt("acme", sealed)
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required application key size (AES-256).
	KeySize = 32

	prefix   = "enc:v1:"
	hkdfInfo = "mailhub-secrets-v1"
)

var (
	ErrInvalidKey        = errors.New("invalid secrets key: must be 32 bytes")
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)

// Cipher seals and opens scoped secrets with one application key.
type Cipher struct {
	appKey []byte
}

// NewCipher validates the key and returns a Cipher holding a private copy of it.
func NewCipher(appKey []byte) (*Cipher, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidKey
	}
	key := make([]byte, KeySize)
	copy(key, appKey)
	return &Cipher{appKey: key}, nil
}

// ParseKey decodes a key given as 64 hex characters or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	return nil, ErrInvalidKey
}

// GenerateKey returns a fresh random application key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// IsEncrypted reports whether s carries the ciphertext prefix.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, prefix)
}

// Encrypt seals plaintext for scope. Empty plaintext stays empty.
func (c *Cipher) Encrypt(scope, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := c.aead(scope)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(scope))
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value sealed for scope.
// Values without the ciphertext prefix are returned unchanged.
func (c *Cipher) Decrypt(scope, value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	aead, err := c.aead(scope)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plain), nil
}

func (c *Cipher) aead(scope string) (cipher.AEAD, error) {
	salt := sha256.Sum256([]byte(scope))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.appKey, salt[:], []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
