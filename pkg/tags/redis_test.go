package tags_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *tags.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := tags.NewRedisFromClient(client, "")
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func TestRedis_SetGet(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "agent-1", "threshold_cooldown_temp", json.RawMessage(`"2026-01-01T00:00:00Z"`)))

	got, err := store.Get(ctx, "agent-1", "threshold_cooldown_temp")
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-01-01T00:00:00Z"`, string(got))
	assert.Equal(t, `"2026-01-01T00:00:00Z"`, mr.HGet("slackproc:tags:agent-1", "threshold_cooldown_temp"))
}

func TestRedis_Get_NotFound(t *testing.T) {
	_, store := setupTestRedis(t)

	_, err := store.Get(context.Background(), "agent-1", "missing")
	assert.ErrorIs(t, err, tags.ErrNotFound)
}

func TestRedis_DeleteAndList(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "agent-1", "a", json.RawMessage(`1`)))
	require.NoError(t, store.Set(ctx, "agent-1", "b", json.RawMessage(`true`)))
	require.NoError(t, store.Delete(ctx, "agent-1", "a"))

	list, err := store.List(ctx, "agent-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.JSONEq(t, `true`, string(list["b"]))
}

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := tags.NewRedis(context.Background(), tags.RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "s", "k", json.RawMessage(`1`)))
	assert.True(t, mr.Exists("test:s"))
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := tags.NewRedis(context.Background(), tags.RedisOptions{Addr: addr})
	assert.Error(t, err)
}
