package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStateStore(client), mr
}

func TestRedisStateStoreGetMissing(t *testing.T) {
	s, _ := newRedisStore(t)

	v, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisStateStoreMSetMGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	value := []byte("tok-\x00-\xff")
	expiry := []byte("1700000000")
	require.NoError(t, s.MSet(ctx, map[string][]byte{
		"commerce:token:value":      value,
		"commerce:token:expires_at": expiry,
	}))

	vals, err := s.MGet(ctx, "commerce:token:value", "commerce:token:expires_at")
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, value, vals[0])
	assert.Equal(t, expiry, vals[1])
}

func TestRedisStateStoreMGetMissingSlot(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, mr.Set("present", "v"))

	vals, err := s.MGet(ctx, "absent", "present")
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Nil(t, vals[0])
	assert.Equal(t, []byte("v"), vals[1])
}

func TestRedisStateStoreDeleteAbsent(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Delete(ctx, "never-set", "also-never-set"))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k", "never-set"))
	assert.False(t, mr.Exists("k"))
}

func TestRedisStateStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Set(ctx, "bot:state:42", []byte("HANDLE_MENU"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("bot:state:42"))

	mr.FastForward(2 * time.Minute)
	v, err := s.Get(ctx, "bot:state:42")
	require.NoError(t, err)
	assert.Nil(t, v)
}
