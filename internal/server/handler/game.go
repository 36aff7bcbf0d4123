package handler

import (
	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/game/room"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/types"
)

// handleJoinQueue 加入匹配队列
func (h *Handler) handleJoinQueue(client types.ClientInterface) {
	if h.server != nil && h.server.IsMaintenanceMode() {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMaintenance))
		return
	}
	if err := h.matcher.Enqueue(client.GetID()); err != nil {
		logRejected(client.GetID(), protocol.MsgJoinQueue, err)
	}
}

// handleLeaveQueue 离开匹配队列，已在房间中时按掉线处理
func (h *Handler) handleLeaveQueue(client types.ClientInterface) {
	h.matcher.Dequeue(client.GetID())
}

// roomFor 按载荷中的房间 ID 找到房间
func (h *Handler) roomFor(client types.ClientInterface, msg *protocol.Message, roomID string) *room.Room {
	r := h.rooms.Get(roomID)
	if r == nil {
		logRejected(client.GetID(), msg.Type, apperrors.ErrRoomNotFound)
	}
	return r
}

// handleReady 玩家准备
func (h *Handler) handleReady(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}
	r := h.roomFor(client, msg, payload.RoomID)
	if r == nil {
		return
	}
	if err := r.Ready(client.GetID()); err != nil {
		logRejected(client.GetID(), msg.Type, err)
	}
}

// handleHit 玩家输入单词
func (h *Handler) handleHit(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.HitPayload](client, msg)
	if !ok {
		return
	}
	r := h.roomFor(client, msg, payload.RoomID)
	if r == nil {
		return
	}
	if err := r.Hit(client.GetID(), payload.TargetID, payload.Word); err != nil {
		logRejected(client.GetID(), msg.Type, err)
		return
	}
	logger.LogDebug("🎯 %s 击杀目标 %d (%s)", client.GetID(), payload.TargetID, payload.Word)
}

// handleRequestRoomState 客户端请求全量状态
func (h *Handler) handleRequestRoomState(client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.RoomPayload](client, msg)
	if !ok {
		return
	}
	r := h.roomFor(client, msg, payload.RoomID)
	if r == nil {
		return
	}
	if err := r.RequestState(client.GetID()); err != nil {
		logRejected(client.GetID(), msg.Type, err)
	}
}
