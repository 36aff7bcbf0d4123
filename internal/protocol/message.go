package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 匹配
	MsgJoinQueue  MessageType = "join-queue"  // 加入匹配队列
	MsgLeaveQueue MessageType = "leave-queue" // 离开匹配队列

	// 对局操作
	MsgReady            MessageType = "ready"              // 准备就绪
	MsgHit              MessageType = "hit"                // 输入单词击杀目标
	MsgRequestRoomState MessageType = "request-room-state" // 请求全量房间状态
	MsgRejoinRoom       MessageType = "rejoin-room"        // 断线后重新加入房间
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected MessageType = "connected" // 连接成功
	MsgPong      MessageType = "pong"      // 心跳 pong

	// 匹配相关
	MsgMatchFound MessageType = "match-found" // 匹配成功

	// 对局流程
	MsgMatchStart     MessageType = "match-start"     // 对局开始
	MsgPlayerReady    MessageType = "player-ready"    // 玩家准备
	MsgSpawnTarget    MessageType = "spawn-target"    // 生成目标
	MsgTargetUpdate   MessageType = "target-update"   // 目标位置增量
	MsgTargetReached  MessageType = "target-reached"  // 目标抵达中心
	MsgPlayerStats    MessageType = "player-stats"    // 玩家生命/击杀
	MsgTargetKilled   MessageType = "target-killed"   // 目标被击杀
	MsgMatchEnd       MessageType = "match-end"       // 对局结束
	MsgPlayerRejoined MessageType = "player-rejoined" // 玩家重连
	MsgOpponentLeft   MessageType = "opponent-left"   // 对手离开
	MsgRoomState      MessageType = "room-state"      // 全量房间状态

	// 错误
	MsgError MessageType = "error" // 错误消息
)
