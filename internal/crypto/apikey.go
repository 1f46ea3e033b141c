// Package crypto hashes and verifies the API key that guards the HTTP
// surface. Keys are stored as PBKDF2-HMAC-SHA256 digests, never in clear.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the OWASP-recommended minimum for HMAC-SHA256.
	DefaultIterations = 600_000
	saltLen           = 16
	keyLen            = 32
	scheme            = "pbkdf2-sha256"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("crypto: malformed key hash")

// HashKey derives an encoded hash for key:
//
//	pbkdf2-sha256$<iterations>$<salt b64>$<digest b64>
//
// iterations <= 0 uses DefaultIterations.
func HashKey(key string, iterations int) (string, error) {
	if key == "" {
		return "", errors.New("crypto: key must not be empty")
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generating salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(key), salt, iterations, keyLen, sha256.New)

	return strings.Join([]string{
		scheme,
		strconv.Itoa(iterations),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	}, "$"), nil
}

// VerifyKey reports whether key matches encoded. The comparison runs in
// constant time.
func VerifyKey(key, encoded string) (bool, error) {
	iterations, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := pbkdf2.Key([]byte(key), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Verifier checks presented keys against one stored hash, caching the
// parsed parameters.
type Verifier struct {
	iterations int
	salt       []byte
	digest     []byte
}

// NewVerifier parses encoded once for repeated checks.
func NewVerifier(encoded string) (*Verifier, error) {
	iterations, salt, digest, err := parseHash(encoded)
	if err != nil {
		return nil, err
	}
	return &Verifier{iterations: iterations, salt: salt, digest: digest}, nil
}

// Verify reports whether key matches.
func (v *Verifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	got := pbkdf2.Key([]byte(key), v.salt, v.iterations, len(v.digest), sha256.New)
	return subtle.ConstantTimeCompare(got, v.digest) == 1
}

func parseHash(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != scheme {
		return 0, nil, nil, ErrMalformedHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, fmt.Errorf("%w: iterations %q", ErrMalformedHash, parts[1])
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(digest) == 0 {
		return 0, nil, nil, fmt.Errorf("%w: digest", ErrMalformedHash)
	}
	return iterations, salt, digest, nil
}
