package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

func encodeArgon2id(t *testing.T, password string) string {
	t.Helper()

	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	hash := argon2.IDKey([]byte(password), salt, 1, 8*1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 8*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, MinBcryptCost, NewHasher(4).Cost())
	assert.Equal(t, 13, NewHasher(13).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost())
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher(MinBcryptCost)

	hash, err := h.Hash("correct-horse-battery")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, MinBcryptCost)

	assert.True(t, h.Verify("correct-horse-battery", hash))
	assert.False(t, h.Verify("correct-horse-batterz", hash))
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher(MinBcryptCost)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same-password", first))
	assert.True(t, h.Verify("same-password", second))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := NewHasher(MinBcryptCost).Hash("")
	assert.Error(t, err)
}

func TestVerifyArgon2id(t *testing.T) {
	h := NewHasher(MinBcryptCost)
	encoded := encodeArgon2id(t, "legacy-secret")

	assert.True(t, h.Verify("legacy-secret", encoded))
	assert.False(t, h.Verify("legacy-secreT", encoded))
}

func TestVerifyMalformedHashes(t *testing.T) {
	h := NewHasher(MinBcryptCost)
	valid := encodeArgon2id(t, "pw")

	malformed := []string{
		"",
		"plaintext",
		"$2a$12$tooshort",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$abcd",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		strings.TrimSuffix(valid, valid[strings.LastIndex(valid, "$"):]),
		"$md5$whatever",
	}

	for _, m := range malformed {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("pw", m), "hash %q", m)
		})
	}
}
