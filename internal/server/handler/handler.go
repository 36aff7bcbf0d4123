package handler

import (
	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/game/match"
	"github.com/palemoky/word-duel/internal/game/room"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server  types.ServerInterface
	Rooms   *room.Registry
	Matcher *match.Matcher
}

// Handler 入站消息路由
type Handler struct {
	server   types.ServerInterface
	rooms    *room.Registry
	matcher  *match.Matcher
	handlers map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:  deps.Server,
		rooms:   deps.Rooms,
		matcher: deps.Matcher,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:       h.handlePing,
		protocol.MsgRejoinRoom: h.handleRejoinRoom,

		// 匹配
		protocol.MsgJoinQueue:  func(c types.ClientInterface, _ *protocol.Message) { h.handleJoinQueue(c) },
		protocol.MsgLeaveQueue: func(c types.ClientInterface, _ *protocol.Message) { h.handleLeaveQueue(c) },

		// 对局操作
		protocol.MsgReady:            h.handleReady,
		protocol.MsgHit:              h.handleHit,
		protocol.MsgRequestRoomState: h.handleRequestRoomState,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	logger.LogWarn("⚠️ 未知消息类型: '%s' (来自玩家: %s, Payload长度=%d bytes)", msg.Type, client.GetID(), len(msg.Payload))
	client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// parse 解析载荷，失败时回复格式错误
func parse[T any](client types.ClientInterface, msg *protocol.Message) (*T, bool) {
	payload, err := protocol.ParsePayload[T](msg)
	if err != nil {
		logger.LogDebug("载荷解析失败 %s (%s): %v", msg.Type, client.GetID(), err)
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return nil, false
	}
	return payload, true
}

// logRejected 对局事件被拒绝：丢弃，仅记录日志
func logRejected(connID string, action protocol.MessageType, err error) {
	if apperrors.IsKind(err, apperrors.KindRateLimit) {
		logger.LogInfo("🐢 %s 的 %s 被限速: %v", connID, action, err)
		return
	}
	logger.LogDebug("🚫 %s 的 %s 被拒绝: %v", connID, action, err)
}
