package lock

import (
	"context"
	"testing"
	"time"

	"monetization-ledger/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "day:2025-10-24")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)
	again()
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	a, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)
	defer a()

	b, err := l.Lock(ctx, "day:2025-10-25")
	require.NoError(t, err)
	b()
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return client, s
}

func TestRedis_AcquireAndRelease(t *testing.T) {
	client, s := setupTestRedis(t)
	l := NewRedis(client, time.Minute, logger.Discard())
	l.retryDelay = 5 * time.Millisecond
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)
	assert.True(t, s.Exists(keyPrefix+"day:2025-10-24"))

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "day:2025-10-24")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, s.Exists(keyPrefix+"day:2025-10-24"))

	again, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)
	again()
}

func TestRedis_ReleaseKeepsForeignLock(t *testing.T) {
	client, s := setupTestRedis(t)
	l := NewRedis(client, time.Second, logger.Discard())
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)

	// The first holder's lease expires and another instance takes the lock.
	s.FastForward(2 * time.Second)
	require.NoError(t, s.Set(keyPrefix+"day:2025-10-24", "other-holder"))

	unlock()

	value, err := s.Get(keyPrefix + "day:2025-10-24")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", value)
}

func TestRedis_ExpiredLeaseCanBeTaken(t *testing.T) {
	client, s := setupTestRedis(t)
	l := NewRedis(client, time.Second, logger.Discard())
	ctx := context.Background()

	_, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	unlock, err := l.Lock(ctx, "day:2025-10-24")
	require.NoError(t, err)
	unlock()
}
