package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T, namespace string) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(RedisClientOptions{
		RedisURL:  "redis://" + mr.Addr(),
		Namespace: namespace,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNewRedisClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    RedisClientOptions
		wantErr error
	}{
		{"missing URL", RedisClientOptions{}, ErrMissingConfiguration},
		{"bad URL", RedisClientOptions{RedisURL: "mysql://nope"}, ErrInvalidConfiguration},
		{"unreachable", RedisClientOptions{RedisURL: "redis://127.0.0.1:1", PingTimeout: 200 * time.Millisecond}, ErrTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedisClient(tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRedisClientNamespace(t *testing.T) {
	client, mr := newTestRedisClient(t, "evel")

	ctx := context.Background()
	require.NoError(t, client.PushCapped(ctx, "failed", "a", 0, 0))

	assert.True(t, mr.Exists("evel:failed"))
	assert.Equal(t, "evel", client.GetNamespace())
	assert.Equal(t, 0, client.GetDB())
}

func TestRedisClientPushCapped(t *testing.T) {
	client, mr := newTestRedisClient(t, "")
	ctx := context.Background()

	for _, v := range []string{"one", "two", "three", "four"} {
		require.NoError(t, client.PushCapped(ctx, "journal", v, 3, time.Minute))
	}

	n, err := client.Len(ctx, "journal")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := client.Range(ctx, "journal", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"four", "three", "two"}, entries)

	assert.Equal(t, time.Minute, mr.TTL("journal"))
}

func TestRedisClientHealthCheck(t *testing.T) {
	client, mr := newTestRedisClient(t, "")

	assert.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
