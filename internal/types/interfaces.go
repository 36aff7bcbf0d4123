package types

import (
	"context"

	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/storage"
)

// Transport 出站消息投递（由 WebSocket 服务器实现）
type Transport interface {
	// SendTo 发送给单个连接，连接不存在时返回 apperrors.ErrNotReachable
	SendTo(connID string, msg *protocol.Message) error
	// SendToGroup 广播给组内所有连接，尽力而为
	SendToGroup(group string, msg *protocol.Message)
	JoinGroup(group, connID string)
	LeaveGroup(group, connID string)
}

// Liveness 连接存活检查
type Liveness interface {
	IsAlive(connID string) bool
}

// ClientInterface 客户端连接接口
type ClientInterface interface {
	GetID() string
	SendMessage(msg *protocol.Message)
	Close()
}

// RoomStore 房间状态镜像存储
type RoomStore interface {
	SaveRoom(ctx context.Context, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, id string) error
	SaveSession(ctx context.Context, session *storage.PlayerSessionData) error
	DeleteSession(ctx context.Context, playerIDs ...string) error
}

// QueueStore 匹配队列镜像存储
type QueueStore interface {
	AddToMatchQueue(ctx context.Context, playerID string) error
	RemoveFromMatchQueue(ctx context.Context, playerIDs ...string) error
}

// ServerInterface 处理器需要的服务器状态
type ServerInterface interface {
	IsMaintenanceMode() bool
}
