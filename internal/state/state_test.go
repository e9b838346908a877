package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseManager(t *testing.T, m StateManager) {
	t.Helper()
	ctx := context.Background()

	cursor, err := m.GetCursor(ctx, "limit:100:nsfw:false")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, m.SetCursor(ctx, "limit:100:nsfw:false", "abc"))
	require.NoError(t, m.SetCursor(ctx, "limit:50:nsfw:true", "zzz"))

	cursor, err = m.GetCursor(ctx, "limit:100:nsfw:false")
	require.NoError(t, err)
	assert.Equal(t, "abc", cursor)

	require.NoError(t, m.Clear(ctx, "limit:100:nsfw:false"))
	cursor, err = m.GetCursor(ctx, "limit:100:nsfw:false")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	cursor, err = m.GetCursor(ctx, "limit:50:nsfw:true")
	require.NoError(t, err)
	assert.Equal(t, "zzz", cursor)
}

func TestFileStateManager(t *testing.T) {
	exerciseManager(t, NewFileStateManager(filepath.Join(t.TempDir(), "state", "cursor.json")))
}

func TestRedisStateManager(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	exerciseManager(t, NewRedisStateManager(rdb, "civitai:progress:cursor:"))
	assert.True(t, mr.Exists("civitai:progress:cursor:limit:50:nsfw:true"))
}

func TestNoopStateManager(t *testing.T) {
	m := NewNoopStateManager()
	require.NoError(t, m.SetCursor(context.Background(), "k", "v"))

	cursor, err := m.GetCursor(context.Background(), "k")
	require.NoError(t, err)
	assert.Empty(t, cursor)
}
