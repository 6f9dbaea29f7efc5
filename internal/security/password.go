package security

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest work factor Hash will use.
const MinBcryptCost = 12

// Hasher produces bcrypt hashes and verifies both bcrypt and argon2id
// (PHC encoded) hashes, so accounts imported with either format can sign in.
type Hasher struct {
	cost int
}

func NewHasher(cost int) Hasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Cost() int {
	return h.cost
}

func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("hash password: empty password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify never fails on a malformed hash; it reports false instead.
func (h Hasher) Verify(password string, encodedHash string) bool {
	switch {
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	default:
		return false
	}
}

type argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// verifyArgon2id checks $argon2id$v=19$m=..,t=..,p=..$<salt>$<hash>.
func verifyArgon2id(password string, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("parse hash: invalid format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parse version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("parse version: unsupported %d", version)
	}

	var params argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return false, fmt.Errorf("parse params: %w", err)
	}
	if params.Time == 0 || params.Threads == 0 {
		return false, fmt.Errorf("parse params: zero cost")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	if len(hash) == 0 {
		return false, fmt.Errorf("decode hash: empty")
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}
