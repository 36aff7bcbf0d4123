package handler

import (
	"time"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.PingPayload](client, msg)
	if !ok {
		return
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleRejoinRoom 断线玩家以当前连接重新加入房间
func (h *Handler) handleRejoinRoom(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.RejoinRoomPayload](client, msg)
	if !ok {
		return
	}

	newID := client.GetID()
	h.matcher.Leave(newID)

	if _, err := h.rooms.Reconnect(payload.RoomID, payload.PlayerID, newID, payload.Token); err != nil {
		logger.LogInfo("🔄 玩家 %s 重连房间 %s 失败: %v", payload.PlayerID, payload.RoomID, err)
		code := apperrors.CodeOf(err)
		client.SendMessage(protocol.NewErrorMessage(code))
		return
	}
	logger.LogInfo("🔄 玩家 %s 以连接 %s 重连房间 %s 成功", payload.PlayerID, newID, payload.RoomID)
}
