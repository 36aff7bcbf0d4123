package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_SaveLoadDeleteRoom(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	roomData := &RoomData{
		ID:    "room-1",
		State: "running",
		Players: []PlayerData{
			{ID: "a", Heart: 3, Ready: true},
			{ID: "b", Heart: 2, Kills: 4, Ready: true},
		},
		CreatedAt: time.Now().UnixMilli(),
	}

	require.NoError(t, store.SaveRoom(ctx, roomData))
	assert.True(t, mr.Exists("room:room-1"))
	assert.Greater(t, mr.TTL("room:room-1"), time.Duration(0))

	loaded, err := store.LoadRoom(ctx, "room-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, roomData.State, loaded.State)
	assert.Equal(t, roomData.Players, loaded.Players)

	ids, err := store.GetAllRoomIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"room-1"}, ids)

	require.NoError(t, store.DeleteRoom(ctx, "room-1"))

	loaded, err = store.LoadRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_LoadRoom_Corrupt(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("room:bad", "{not json"))

	_, err := store.LoadRoom(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisStore_MatchQueue(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToMatchQueue(ctx, "p1"))
	require.NoError(t, store.AddToMatchQueue(ctx, "p2"))
	require.NoError(t, store.AddToMatchQueue(ctx, "p3"))

	n, err := store.GetMatchQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, store.RemoveFromMatchQueue(ctx, "p1", "p3"))

	n, err = store.GetMatchQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.ClearMatchQueue(ctx))
	n, err = store.GetMatchQueueLength(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_Session(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &PlayerSessionData{
		PlayerID:       "a",
		RoomID:         "room-1",
		ReconnectToken: "tok",
		DisconnectedAt: 1234,
	}))
	assert.Greater(t, mr.TTL("session:a"), time.Duration(0))

	assert.Equal(t, "room-1", mr.HGet("session:a", "room_id"))
	assert.Equal(t, "tok", mr.HGet("session:a", "token"))
	assert.Equal(t, "1234", mr.HGet("session:a", "disconnected_at"))

	require.NoError(t, store.DeleteSession(ctx, "a", "b"))
	assert.False(t, mr.Exists("session:a"))
}

func TestRedisStore_PurgeStaleRooms(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, &RoomData{
		ID:      "old",
		Players: []PlayerData{{ID: "a"}, {ID: "b"}},
	}))
	require.NoError(t, store.SaveSession(ctx, &PlayerSessionData{PlayerID: "a", RoomID: "old"}))
	require.NoError(t, store.SaveSession(ctx, &PlayerSessionData{PlayerID: "b", RoomID: "old"}))
	require.NoError(t, mr.Set("room:broken", "{not json"))
	require.NoError(t, mr.Set("stats:online", "3"))

	n, err := store.PurgeStaleRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.False(t, mr.Exists("room:old"))
	assert.False(t, mr.Exists("room:broken"))
	assert.False(t, mr.Exists("session:a"))
	assert.False(t, mr.Exists("session:b"))
	assert.True(t, mr.Exists("stats:online"), "其他 key 不受影响")

	n, err = store.PurgeStaleRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_OnlineCount(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	require.NoError(t, store.SetOnlineCount(context.Background(), 42))

	v, err := mr.Get("stats:online")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestRedisStore_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	store := NewRedisStore(nil)
	ctx := context.Background()

	assert.False(t, store.Enabled())
	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.SaveRoom(ctx, &RoomData{ID: "x"}))
	assert.NoError(t, store.AddToMatchQueue(ctx, "p"))
	assert.NoError(t, store.SaveSession(ctx, &PlayerSessionData{PlayerID: "p"}))

	room, err := store.LoadRoom(ctx, "x")
	assert.NoError(t, err)
	assert.Nil(t, room)

	n, err := store.GetMatchQueueLength(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
	purged, err := store.PurgeStaleRooms(ctx)
	assert.NoError(t, err)
	assert.Zero(t, purged)
	assert.NoError(t, store.Close())
}
