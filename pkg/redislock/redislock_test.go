package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute)
}

func TestLocker_MutualExclusion(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "dispatch:TRX-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok2, err := l.Acquire(ctx, "dispatch:TRX-1")
	require.NoError(t, err)
	require.False(t, ok2)

	// A different key is independent.
	release2, ok3, err := l.Acquire(ctx, "dispatch:TRX-2")
	require.NoError(t, err)
	require.True(t, ok3)
	release2()

	release()
	_, ok4, err := l.Acquire(ctx, "dispatch:TRX-1")
	require.NoError(t, err)
	require.True(t, ok4)
}

func TestLocker_DisabledAlwaysGrants(t *testing.T) {
	l := &Locker{}
	for i := 0; i < 3; i++ {
		release, ok, err := l.Acquire(context.Background(), "dispatch:TRX-1")
		require.NoError(t, err)
		require.True(t, ok)
		release()
	}
}
