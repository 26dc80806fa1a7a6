// Package cryptox holds the small crypto helpers used for ranger PIN
// verification and opaque token generation.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	keySize  = 32
)

// HashPIN derives a verifier from a ranger PIN with Argon2id.
func HashPIN(pin, salt []byte) []byte {
	return argon2.IDKey(pin, salt, 1, 64*1024, 4, keySize)
}

// VerifyPIN compares a candidate PIN against a stored hash in constant time.
func VerifyPIN(pin, salt, hash []byte) bool {
	candidate := HashPIN(pin, salt)
	defer WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MakeRandHexString returns size random bytes, hex-encoded (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
