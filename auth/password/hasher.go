// Package password hashes and verifies user passwords with bcrypt.
//
// Usage:
//
//	hasher := password.NewBcryptHasher()
//	hash, err := hasher.Hash("Secret123")
//	ok := hasher.Verify("Secret123", hash)
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 12

// maxInputBytes is the number of password bytes bcrypt reads.
const maxInputBytes = 72

// Hasher hashes and verifies passwords.
type Hasher interface {
	// Hash returns a salted one-way hash of plaintext. Two calls with the
	// same input return different strings.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches hash. A malformed hash is
	// a mismatch, never an error.
	Verify(plaintext, hash string) bool

	// NeedsRehash reports whether hash was produced with different
	// parameters than the hasher currently uses.
	NeedsRehash(hash string) bool
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

var _ Hasher = (*BcryptHasher)(nil)

// BcryptOption configures the bcrypt hasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost parameter. Values outside bcrypt's
// accepted range are ignored.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// NewBcryptHasher creates a bcrypt-based password hasher with cost 12.
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cost returns the work factor used for new hashes.
func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plaintext)) == nil
}

func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost != h.cost
}

// truncate keeps the bytes bcrypt reads. Longer inputs would otherwise be
// rejected by GenerateFromPassword, while hashes made by other bcrypt
// implementations silently ignore everything past byte 72.
func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxInputBytes {
		b = b[:maxInputBytes]
	}
	return b
}
