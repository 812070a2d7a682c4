package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "realform/pkg/domain-errors"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	t.Run("digest verifies and is not the plaintext", func(t *testing.T) {
		digest, err := h.Hash("correct horse battery staple")
		require.NoError(t, err)
		assert.NotEqual(t, "correct horse battery staple", digest)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte("correct horse battery staple")))
	})

	t.Run("same secret hashes differently", func(t *testing.T) {
		a, err := h.Hash("pw")
		require.NoError(t, err)
		b, err := h.Hash("pw")
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "digests must be salted")
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := h.Hash("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("over-long secret rejected", func(t *testing.T) {
		_, err := h.Hash(strings.Repeat("x", MaxSecretBytes+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestNewHasherCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).cost)

	digest, err := NewHasher(DefaultCost).Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}
