// Package cryptox implements one-way credential hashing for the gallery.
//
// Hashes are self-describing: the argon2id parameters and the per-credential
// salt are encoded into the hash string, so verification needs nothing beyond
// the stored value and the candidate password.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	keyLength  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	// Bounds accepted from stored hashes during validation. argon2 panics on
	// zero rounds or parallelism, and oversized parameters would let a bad
	// stored value pin a core for the length of a login attempt.
	maxValidateTime   = 16
	maxValidateMemory = 1 << 20 // KiB, 1 GiB
)

// Service satisfies the Cryptographer contract of the services layer.
// Stateless; the zero value is ready to use.
type Service struct{}

func NewService() *Service { return &Service{} }

func (Service) GenerateSaltedHash(plaintext string) (string, error) {
	return GenerateSaltedHash(plaintext)
}

func (Service) ValidateSaltedHash(hashed, candidate string) bool {
	return ValidateSaltedHash(hashed, candidate)
}

// GenerateSaltedHash hashes plaintext with argon2id under a fresh random salt.
// Repeated calls with the same input produce different hashes.
func GenerateSaltedHash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation: %w", err)
	}

	digest := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, keyLength)

	return fmt.Sprintf("argon2id$v=%d$t=%d,m=%d,p=%d$%s$%s",
		argon2.Version, argonTime, argonMemory, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// ValidateSaltedHash recomputes the digest of candidate using the parameters
// and salt embedded in hashed and compares in constant time. Malformed input
// yields false, never an error, so a bad stored value is indistinguishable
// from a wrong password.
func ValidateSaltedHash(hashed, candidate string) bool {
	parts := strings.Split(hashed, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var time, memory uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[2], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false
	}
	if time == 0 || threads == 0 || time > maxValidateTime || memory > maxValidateMemory {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(digest) == 0 {
		return false
	}

	recomputed := argon2.IDKey([]byte(candidate), salt, time, memory, threads, uint32(len(digest)))

	return subtle.ConstantTimeCompare(digest, recomputed) == 1
}
