// Package cryptutil provides passphrase-keyed authenticated encryption for
// document payloads, adapted from the teacher's raw-key AES-GCM helper
// (codex/internal/encryption) by adding a PBKDF2 key-derivation step so a
// human passphrase, not a raw key, is the only secret callers manage. This
// stands in for the `age` passphrase recipient the original Rust
// implementation used, which has no available Go port in this module's
// dependency pack.
package cryptutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 200_000
)

// ErrMalformedEnvelope is returned when ciphertext is too short to contain
// a salt and nonce.
var ErrMalformedEnvelope = errors.New("cryptutil: malformed envelope")

// deriveKey runs PBKDF2-HMAC-SHA256 over the passphrase with the given salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

// Seal encrypts plaintext under passphrase, returning a self-contained
// envelope: salt || nonce || ciphertext (ciphertext includes the GCM tag).
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptutil: generate salt: %w", err)
	}
	key := deriveKey(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptutil: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptutil: generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open decrypts an envelope produced by Seal, verifying integrity and
// authenticity. Returns an error (not a panic) on wrong passphrase or
// tampered ciphertext.
func Open(passphrase string, envelope []byte) ([]byte, error) {
	if len(envelope) < saltSize {
		return nil, ErrMalformedEnvelope
	}
	salt := envelope[:saltSize]
	rest := envelope[saltSize:]

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptutil: new gcm: %w", err)
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrMalformedEnvelope
	}
	nonce := rest[:gcm.NonceSize()]
	ciphertext := rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptutil: decrypt: %w", err)
	}
	return plaintext, nil
}
