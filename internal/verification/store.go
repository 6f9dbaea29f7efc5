// Package verification keeps the short-lived one-time sign-in codes. It plays
// the role of the email-link provider: the orchestrator saves a code when it
// mails one and asks the store to compare when the user submits it.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"expressconnect/internal/security"
)

var (
	ErrCodeNotFound = errors.New("verification code not found")
	ErrCodeMismatch = errors.New("verification code mismatch")
)

const DefaultMaxAttempts = 5

// verifyScript compares and deletes in one step so a code can be used once.
// Returns 1 on match, 0 when no code is live, -1 on mismatch.
var verifyScript = redis.NewScript(`
local h = redis.call('HGET', KEYS[1], 'h')
if not h then
  return 0
end
if h == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
local a = redis.call('HINCRBY', KEYS[1], 'a', 1)
if a >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
end
return -1
`)

type Store struct {
	client      redis.UniversalClient
	prefix      string
	secret      string
	maxAttempts int
}

func NewStore(client redis.UniversalClient, secret string) *Store {
	return &Store{
		client:      client,
		prefix:      "otp",
		secret:      secret,
		maxAttempts: DefaultMaxAttempts,
	}
}

func (s *Store) key(email string) string {
	return s.prefix + ":" + email
}

// Save replaces any code already pending for the address.
func (s *Store) Save(ctx context.Context, email string, code string, ttl time.Duration) error {
	key := s.key(email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "h", security.HashCode(email, code, s.secret), "a", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

func (s *Store) Verify(ctx context.Context, email string, code string) error {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{s.key(email)},
		security.HashCode(email, code, s.secret),
		s.maxAttempts,
	).Int()
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}

	switch res {
	case 1:
		return nil
	case 0:
		return ErrCodeNotFound
	default:
		return ErrCodeMismatch
	}
}
