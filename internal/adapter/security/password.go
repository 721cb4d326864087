package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// legacyHashLen is the length of a hex-encoded unsalted SHA-256 digest
const legacyHashLen = sha256.Size * 2

// BcryptHasher implements domain.PasswordHasher with bcrypt.
// It also verifies the unsalted SHA-256 hex digests of older password files.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password
func (h *BcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash
func (h *BcryptHasher) Verify(hash, password string) bool {
	if digest, ok := legacyDigest(hash); ok {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare(sum[:], digest) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash is a legacy digest or a bcrypt hash of another cost
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	if _, ok := legacyDigest(hash); ok {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}

// legacyDigest decodes a hex SHA-256 digest; hex is accepted in either case
func legacyDigest(hash string) ([]byte, bool) {
	if len(hash) != legacyHashLen {
		return nil, false
	}
	digest, err := hex.DecodeString(hash)
	return digest, err == nil
}
