// Package cryptoutil provides the authenticated encryption and key
// derivation primitives used by the credential store.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2 iteration count for key derivation.
	KDFIterations = 100000

	// KeyLen is the derived key length in bytes (AES-256).
	KeyLen = 32

	// ivLen is the AES-GCM nonce length in bytes.
	ivLen = 12

	// tagLen is the GCM authentication tag length in bytes.
	tagLen = 16
)

// ErrAuthentication indicates the GCM authentication tag did not verify.
// This means the data was tampered with or the wrong key was used, and
// is distinct from malformed-input errors.
var ErrAuthentication = errors.New("authentication failed: wrong key or tampered data")

// Sealed holds the output of Encrypt. The authentication tag is kept
// separate from the ciphertext so each part can be persisted and
// validated independently.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// DeriveKey derives a 32-byte key from secret material and a salt using
// PBKDF2-SHA256 with 100000 iterations. Same inputs always yield the
// same key.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, KDFIterations, KeyLen, sha256.New)
}

// Encrypt seals plaintext under key with AES-256-GCM. A fresh random IV
// is generated on every call.
func Encrypt(plaintext, key []byte) (*Sealed, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext must not be empty")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generating IV: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)

	// gcm.Seal appends the tag to the ciphertext; split it back out.
	split := len(sealed) - tagLen
	return &Sealed{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}, nil
}

// Decrypt opens a sealed record. Returns ErrAuthentication when the tag
// does not verify; length violations return ordinary errors.
func Decrypt(s *Sealed, key []byte) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil sealed input")
	}
	if len(s.Ciphertext) == 0 {
		return nil, errors.New("ciphertext must not be empty")
	}
	if len(s.IV) != ivLen {
		return nil, fmt.Errorf("invalid IV length: expected %d bytes, got %d", ivLen, len(s.IV))
	}
	if len(s.AuthTag) != tagLen {
		return nil, fmt.Errorf("invalid auth tag length: expected %d bytes, got %d", tagLen, len(s.AuthTag))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(s.Ciphertext)+tagLen)
	sealed = append(sealed, s.Ciphertext...)
	sealed = append(sealed, s.AuthTag...)

	plaintext, err := gcm.Open(nil, s.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

// ZeroKey overwrites key material in place. Call after the key is no
// longer needed to limit how long raw key bytes live in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d", KeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return gcm, nil
}
