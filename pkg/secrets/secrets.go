package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "realform/pkg/domain-errors"
)

// DefaultCost matches the work factor the registration form has always used.
const DefaultCost = 10

// MaxSecretBytes is bcrypt's input limit; longer secrets are rejected upstream.
const MaxSecretBytes = 72

// Hasher turns plaintext secrets into salted bcrypt digests.
type Hasher struct {
	cost int
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash creates a bcrypt digest of the provided secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", dErrors.Wrap(fmt.Errorf("could not hash secret: %w", err), dErrors.CodeHashing, "failed to hash secret")
	}
	return string(hashed), nil
}
