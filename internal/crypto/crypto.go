// Package crypto encrypts tenant secrets at rest. Blobs are four hex fields
// joined by colons: salt:iv:tag:ciphertext. The caller-supplied context label
// is bound to the ciphertext as GCM additional data, so a blob produced for
// one purpose will not decrypt under another.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MasterKeyEnv names the environment variable holding the process-wide
	// master key. Loaded lazily on first use, never mutated after.
	MasterKeyEnv = "MASTER_ENCRYPTION_KEY"

	minMasterKeyLen = 32
	saltSize        = 32
	ivSize          = 16
	keySize         = 32
	tagSize         = 16
	iterations      = 100000
)

var (
	ErrNoMasterKey      = errors.New("crypto: master encryption key is not configured")
	ErrKeyTooShort      = errors.New("crypto: master encryption key must be at least 32 characters")
	ErrInvalidBlob      = errors.New("crypto: invalid encrypted blob")
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)

func masterKey() ([]byte, error) {
	key := os.Getenv(MasterKeyEnv)
	if key == "" {
		return nil, ErrNoMasterKey
	}
	if len(key) < minMasterKeyLen {
		return nil, ErrKeyTooShort
	}
	return []byte(key), nil
}

// Encrypt seals plaintext under a key derived from the master key and a fresh
// random salt, with context as additional authenticated data. Empty plaintext
// returns an empty string. Two calls with identical inputs never produce the
// same blob.
func Encrypt(plaintext, context string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	master, err := masterKey()
	if err != nil {
		return "", err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("crypto: salt generation failed: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("crypto: iv generation failed: %w", err)
	}

	gcm, err := newGCM(master, salt)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), []byte(context))
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt reverses Encrypt. It fails with ErrInvalidBlob on a malformed blob
// and ErrDecryptionFailed when the authentication tag does not verify (wrong
// master key, wrong context, or tampered data). Empty blob returns "".
func Decrypt(blob, context string) (string, error) {
	if blob == "" {
		return "", nil
	}

	master, err := masterKey()
	if err != nil {
		return "", err
	}

	parts := strings.Split(blob, ":")
	if len(parts) != 4 {
		return "", ErrInvalidBlob
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidBlob
	}
	iv, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidBlob
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidBlob
	}
	ciphertext, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", ErrInvalidBlob
	}
	if len(iv) != ivSize || len(tag) != tagSize {
		return "", ErrInvalidBlob
	}

	gcm, err := newGCM(master, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), []byte(context))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value matches the blob format: exactly four
// colon-separated, non-empty hex fields. Format-only check, no verification.
func IsEncrypted(value string) bool {
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

// SafeEncrypt encrypts value unless it already looks encrypted, so repeated
// saves and migrations never double-encrypt.
func SafeEncrypt(value, context string) (string, error) {
	if value == "" || IsEncrypted(value) {
		return value, nil
	}
	return Encrypt(value, context)
}

// SafeDecrypt decrypts value only when it looks encrypted; plaintext passes
// through untouched.
func SafeDecrypt(value, context string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	return Decrypt(value, context)
}

func newGCM(master, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key(master, salt, iterations, keySize, sha512.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm init failed: %w", err)
	}
	return gcm, nil
}
