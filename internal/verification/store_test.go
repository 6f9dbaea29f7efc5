package verification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, "pepper"), mr
}

func TestVerifyMatchIsSingleUse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Hour))

	assert.NoError(t, store.Verify(ctx, "ada@example.com", "Ab3dEf9h"))
	assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "Ab3dEf9h"), ErrCodeNotFound)
}

func TestVerifyMismatchKeepsCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Hour))

	assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "ab3dEf9h"), ErrCodeMismatch)
	assert.NoError(t, store.Verify(ctx, "ada@example.com", "Ab3dEf9h"))
}

func TestVerifyBoundToAddress(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Hour))

	assert.ErrorIs(t, store.Verify(ctx, "bob@example.com", "Ab3dEf9h"), ErrCodeNotFound)
}

func TestVerifyExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Minute))
	mr.FastForward(2 * time.Minute)

	assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "Ab3dEf9h"), ErrCodeNotFound)
}

func TestSaveSupersedesPreviousCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "FIRSTaaa", time.Hour))
	require.NoError(t, store.Save(ctx, "ada@example.com", "SECONDbb", time.Hour))

	assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "FIRSTaaa"), ErrCodeMismatch)
	assert.NoError(t, store.Verify(ctx, "ada@example.com", "SECONDbb"))
}

func TestVerifyAttemptsExhausted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Hour))

	for i := 0; i < DefaultMaxAttempts; i++ {
		assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "wrong000"), ErrCodeMismatch)
	}
	assert.ErrorIs(t, store.Verify(ctx, "ada@example.com", "Ab3dEf9h"), ErrCodeNotFound)
}

func TestStoreDoesNotKeepPlaintext(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ada@example.com", "Ab3dEf9h", time.Hour))

	stored := mr.HGet("otp:ada@example.com", "h")
	assert.NotEmpty(t, stored)
	assert.NotContains(t, stored, "Ab3dEf9h")
}

func TestVerifyRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewStore(client, "pepper")
	mr.Close()

	err = store.Verify(context.Background(), "ada@example.com", "Ab3dEf9h")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeMismatch)
	assert.NotErrorIs(t, err, ErrCodeNotFound)
}
