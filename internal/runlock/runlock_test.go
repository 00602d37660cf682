package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect_errors(t *testing.T) {
	_, err := Connect(context.Background(), "http://localhost")
	require.ErrorContains(t, err, "parse redis URL")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), "redis://"+addr)
	require.ErrorContains(t, err, "redis ping")
}

func TestRedis_Do(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, time.Minute)
	ctx := context.Background()

	var called bool
	err := locker.Do(ctx, "ingest", func(ctx context.Context) error {
		called = true
		assert.True(t, mr.Exists(keyPrefix+"ingest"))
		assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"ingest"))

		// Overlapping runs of the same job are rejected, other jobs aren't.
		err := locker.Do(ctx, "ingest", func(context.Context) error {
			t.Fatal("overlapping run called")
			return nil
		})
		require.ErrorIs(t, err, ErrLocked)
		return locker.Do(ctx, "dispatch", func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, mr.Exists(keyPrefix+"ingest"))
	assert.False(t, mr.Exists(keyPrefix+"dispatch"))
}

func TestRedis_Do_returnsError(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, time.Minute)

	boom := errors.New("boom")
	err := locker.Do(context.Background(), "ingest",
		func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(keyPrefix+"ingest"))
}

func TestRedis_Do_expiredLockNotReleased(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, time.Second)

	err := locker.Do(context.Background(), "dispatch",
		func(context.Context) error {
			mr.FastForward(2 * time.Second)
			// Another process took the lock after it expired.
			require.NoError(t, mr.Set(keyPrefix+"dispatch", "other"))
			return nil
		})
	require.NoError(t, err)

	got, err := mr.Get(keyPrefix + "dispatch")
	require.NoError(t, err)
	assert.Equal(t, "other", got)
}

func TestRedis_Do_unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	err := NewRedis(client, time.Minute).Do(context.Background(), "ingest",
		func(context.Context) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestLocal_Do(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	err := locker.Do(ctx, "ingest", func(ctx context.Context) error {
		err := locker.Do(ctx, "ingest", func(context.Context) error {
			t.Fatal("overlapping run called")
			return nil
		})
		require.ErrorIs(t, err, ErrLocked)
		return locker.Do(ctx, "dispatch", func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)

	var called bool
	require.NoError(t, locker.Do(ctx, "ingest", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
