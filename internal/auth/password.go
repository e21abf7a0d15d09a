package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength     = 16
	hashIterations = 100_000
	hashKeyLength  = 32
)

// NewSalt returns a fresh 16-byte salt from a cryptographically secure source.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword derives a digest using PBKDF2 with HMAC-SHA512, 100k iterations
// and a 32-byte key. The salt must be exactly 16 bytes.
func HashPassword(password string, salt []byte) (string, error) {
	if len(salt) != saltLength {
		return "", fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidInput, saltLength, len(salt))
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword recomputes the digest and compares in constant time. Any
// failure, including a malformed salt or digest, yields false.
func VerifyPassword(password string, salt []byte, digest string) bool {
	expected, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return false
	}
	encoded, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	computed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
