package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	roomKeyPrefix    = "room:"
	sessionKeyPrefix = "session:"
	matchQueueKey    = "match:queue"
	onlineCountKey   = "stats:online"

	// 房间数据过期时间
	roomExpiration = 2 * time.Hour
)

// RoomData 房间数据（用于 Redis 序列化）
type RoomData struct {
	ID        string       `json:"id"`
	State     string       `json:"state"`
	Players   []PlayerData `json:"players"`
	CreatedAt int64        `json:"created_at"`
	UpdatedAt int64        `json:"updated_at"`
}

// PlayerData 玩家公开数据
type PlayerData struct {
	ID           string `json:"id"`
	Heart        int    `json:"heart"`
	Kills        int    `json:"kills"`
	Ready        bool   `json:"ready"`
	Disconnected bool   `json:"disconnected"`
}

// PlayerSessionData 玩家重连会话
type PlayerSessionData struct {
	PlayerID       string `json:"player_id"`
	RoomID         string `json:"room_id"`
	ReconnectToken string `json:"token"`
	DisconnectedAt int64  `json:"disconnected_at,omitempty"`
}

// RedisStore Redis 存储，client 为 nil 时所有操作为空操作
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Enabled 是否连接了 Redis
func (rs *RedisStore) Enabled() bool {
	return rs != nil && rs.client != nil
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Ping(ctx).Err()
}

// Close 关闭连接
func (rs *RedisStore) Close() error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Close()
}

// --- 房间存储 ---

// SaveRoom 保存房间到 Redis
func (rs *RedisStore) SaveRoom(ctx context.Context, data *RoomData) error {
	if !rs.Enabled() || data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}

	return rs.client.Set(ctx, roomKeyPrefix+data.ID, jsonData, roomExpiration).Err()
}

// LoadRoom 从 Redis 加载房间，不存在时返回 nil, nil
func (rs *RedisStore) LoadRoom(ctx context.Context, id string) (*RoomData, error) {
	if !rs.Enabled() {
		return nil, nil
	}
	data, err := rs.client.Get(ctx, roomKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var roomData RoomData
	if err := json.Unmarshal(data, &roomData); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}

	return &roomData, nil
}

// DeleteRoom 从 Redis 删除房间
func (rs *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Del(ctx, roomKeyPrefix+id).Err()
}

// GetAllRoomIDs 获取所有房间 ID
func (rs *RedisStore) GetAllRoomIDs(ctx context.Context) ([]string, error) {
	if !rs.Enabled() {
		return nil, nil
	}
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := rs.client.Scan(ctx, cursor, roomKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			ids = append(ids, key[len(roomKeyPrefix):])
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

// PurgeStaleRooms 清理上次运行遗留的房间镜像及其会话，返回清理的房间数
func (rs *RedisStore) PurgeStaleRooms(ctx context.Context) (int, error) {
	ids, err := rs.GetAllRoomIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		// 损坏的数据解析不出玩家，只删房间
		if data, err := rs.LoadRoom(ctx, id); err == nil && data != nil {
			playerIDs := make([]string, 0, len(data.Players))
			for _, p := range data.Players {
				playerIDs = append(playerIDs, p.ID)
			}
			if err := rs.DeleteSession(ctx, playerIDs...); err != nil {
				return 0, err
			}
		}
		if err := rs.DeleteRoom(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// --- 匹配队列镜像 ---

// AddToMatchQueue 添加玩家到匹配队列
func (rs *RedisStore) AddToMatchQueue(ctx context.Context, playerID string) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.RPush(ctx, matchQueueKey, playerID).Err()
}

// RemoveFromMatchQueue 从匹配队列移除玩家
func (rs *RedisStore) RemoveFromMatchQueue(ctx context.Context, playerIDs ...string) error {
	if !rs.Enabled() || len(playerIDs) == 0 {
		return nil
	}
	pipe := rs.client.TxPipeline()
	for _, id := range playerIDs {
		pipe.LRem(ctx, matchQueueKey, 0, id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetMatchQueueLength 获取匹配队列长度
func (rs *RedisStore) GetMatchQueueLength(ctx context.Context) (int64, error) {
	if !rs.Enabled() {
		return 0, nil
	}
	return rs.client.LLen(ctx, matchQueueKey).Result()
}

// ClearMatchQueue 清空匹配队列（启动时清理上次遗留）
func (rs *RedisStore) ClearMatchQueue(ctx context.Context) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Del(ctx, matchQueueKey).Err()
}

// --- 重连会话 ---

// SaveSession 保存重连会话，与房间同时过期
func (rs *RedisStore) SaveSession(ctx context.Context, session *PlayerSessionData) error {
	if !rs.Enabled() || session == nil {
		return nil
	}
	data := map[string]any{
		"player_id": session.PlayerID,
		"room_id":   session.RoomID,
		"token":     session.ReconnectToken,
	}
	if session.DisconnectedAt != 0 {
		data["disconnected_at"] = session.DisconnectedAt
	}

	key := sessionKeyPrefix + session.PlayerID
	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, roomExpiration)
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteSession 删除会话
func (rs *RedisStore) DeleteSession(ctx context.Context, playerIDs ...string) error {
	if !rs.Enabled() || len(playerIDs) == 0 {
		return nil
	}
	keys := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		keys[i] = sessionKeyPrefix + id
	}
	return rs.client.Del(ctx, keys...).Err()
}

// --- 统计 ---

// SetOnlineCount 记录当前在线连接数
func (rs *RedisStore) SetOnlineCount(ctx context.Context, n int) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Set(ctx, onlineCountKey, n, 0).Err()
}
