package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/events"
	"github.com/palemoky/word-duel/internal/game/difficulty"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/storage"
)

// sideEffectTimeout Redis / NATS 旁路写入超时
const sideEffectTimeout = 2 * time.Second

func (r *Room) handleReady(connID string) error {
	p := r.playerByConn(connID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if r.state != StateWaitingReady {
		return nil
	}

	p.ready = true
	logger.LogInfo("✋ 玩家 %s 在房间 %s 准备", connID, r.id)
	r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerIDPayload{PlayerID: connID}))

	r.maybeStart()
	return nil
}

// maybeStart 双方都已准备且在线时开始对局
func (r *Room) maybeStart() {
	if r.state != StateWaitingReady {
		return
	}
	for _, p := range r.players {
		if !p.ready || p.disconnected {
			return
		}
	}

	now := r.clock.Now()
	phase := difficulty.At(0)
	for _, p := range r.players {
		p.spawnCooldown = phase.SpawnCooldown(r.rng)
	}

	r.setState(StateRunning)
	r.startedAt = now
	r.lastTickAt = now
	r.lastSnapshotAt = now
	r.tickC, r.stopTick = r.clock.NewTicker(r.settings.TickInterval)

	players := r.playerViews()
	for _, p := range r.players {
		r.sendTo(p, protocol.MustNewMessage(protocol.MsgMatchStart, protocol.MatchStartPayload{
			RoomID:  r.id,
			Targets: p.pool.View(),
			Players: players,
		}))
	}

	logger.LogInfo("🎮 房间 %s 对局开始: %s vs %s", r.id, r.players[0].connID, r.players[1].connID)
	r.persist()

	// 事件在房间 goroutine 内构造，发布 goroutine 只读副本
	started := events.MatchStarted{
		RoomID:    r.id,
		PlayerIDs: []string{r.players[0].connID, r.players[1].connID},
		StartedAt: now,
	}
	r.publish(func(ctx context.Context) error {
		return r.publisher.PublishMatchStarted(ctx, started)
	})
}

func (r *Room) handleHit(connID string, targetID int, word string) error {
	p := r.playerByConn(connID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if r.state != StateRunning {
		return apperrors.ErrRoomNotRunning
	}

	now := r.clock.Now()
	if !p.lastHitAt.IsZero() && now.Sub(p.lastHitAt) < r.settings.HitCooldown {
		return apperrors.ErrHitTooFast
	}

	t := p.pool.Get(targetID)
	if t == nil || !t.Alive {
		return apperrors.ErrTargetNotFound
	}
	if !strings.EqualFold(t.Word, word) {
		return apperrors.ErrWordMismatch
	}

	t.Alive = false
	p.kills++
	p.lastHitAt = now

	r.sendTo(p, protocol.MustNewMessage(protocol.MsgTargetKilled, protocol.TargetKilledPayload{
		TargetID: targetID,
		By:       connID,
	}))
	r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerStats, p.statsPayload()))
	return nil
}

func (r *Room) handleDisconnect(connID string) error {
	p := r.playerByConn(connID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}

	p.disconnected = true
	r.transport.LeaveGroup(r.id, connID)
	r.restartGrace()

	logger.LogInfo("📴 玩家 %s 在房间 %s 中掉线，等待 %v 重连", connID, r.id, r.settings.ReconnectGrace)
	r.persist()
	r.saveSession(p, r.clock.Now())
	return nil
}

func (r *Room) handleReconnect(oldID, newID, token string) error {
	p := r.playerByConn(oldID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !p.disconnected {
		return apperrors.ErrNotDisconnected
	}
	if token != p.token {
		return apperrors.ErrBadToken
	}

	p.connID = newID
	p.disconnected = false
	p.pool.Rebind(newID)
	r.boundIDs = append(r.boundIDs, newID)
	r.transport.JoinGroup(r.id, newID)

	if opp := r.opponentOf(p); opp.disconnected {
		// 对手仍离线，为对手重新计时
		r.restartGrace()
	} else {
		r.cancelGrace()
	}

	logger.LogInfo("🔄 玩家 %s 以新连接 %s 重连房间 %s", oldID, newID, r.id)
	r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerRejoined, protocol.PlayerIDPayload{PlayerID: newID}))
	r.sendRoomState(p)

	r.deleteSessions(oldID)
	r.saveSession(p, time.Time{})
	r.persist()

	r.maybeStart()
	return nil
}

func (r *Room) handleRequestState(connID string) error {
	p := r.playerByConn(connID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	r.sendRoomState(p)
	return nil
}

// expireGrace 宽限期结束，仍有玩家离线则解散房间
func (r *Room) expireGrace() {
	r.graceC, r.stopGrace = nil, nil

	var gone *PlayerState
	for _, p := range r.players {
		if p.disconnected {
			gone = p
			break
		}
	}
	if gone == nil {
		return
	}

	logger.LogInfo("⏰ 房间 %s 重连超时，玩家 %s 未归，解散房间", r.id, gone.connID)
	for _, p := range r.players {
		if p.disconnected {
			continue
		}
		r.sendTo(p, protocol.MustNewMessage(protocol.MsgOpponentLeft, protocol.OpponentLeftPayload{
			RoomID: r.id,
			By:     gone.connID,
		}))
	}
	r.finish()
}

func (r *Room) restartGrace() {
	r.cancelGrace()
	r.graceC, r.stopGrace = r.clock.NewTimer(r.settings.ReconnectGrace)
}

func (r *Room) cancelGrace() {
	if r.stopGrace != nil {
		r.stopGrace()
	}
	r.graceC, r.stopGrace = nil, nil
}

// finish 房间唯一的退出路径：停止计时器、退出广播组、从注册表移除
func (r *Room) finish() {
	if r.state == StateEnded {
		return
	}
	r.setState(StateEnded)

	if r.stopTick != nil {
		r.stopTick()
	}
	r.tickC, r.stopTick = nil, nil
	r.cancelGrace()

	for _, p := range r.players {
		r.transport.LeaveGroup(r.id, p.connID)
	}
	if r.onClose != nil {
		r.onClose(r, append([]string(nil), r.boundIDs...))
	}

	if r.store != nil {
		store, id, ids := r.store, r.id, append([]string(nil), r.boundIDs...)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := store.DeleteRoom(ctx, id); err != nil {
				logger.LogWarn("⚠️ 删除房间 %s 缓存失败: %v", id, err)
			}
			if err := store.DeleteSession(ctx, ids...); err != nil {
				logger.LogWarn("⚠️ 删除房间 %s 重连会话失败: %v", id, err)
			}
		}()
	}
	logger.LogInfo("🏠 房间 %s 已解散", r.id)
}

// --- 消息发送 ---

func (r *Room) sendTo(p *PlayerState, msg *protocol.Message) {
	if p.disconnected {
		return
	}
	if err := r.transport.SendTo(p.connID, msg); err != nil {
		if errors.Is(err, apperrors.ErrNotReachable) {
			logger.LogDebug("📭 %s 不可达，丢弃 %s", p.connID, msg.Type)
			return
		}
		logger.LogWarn("⚠️ 发送 %s 给 %s 失败: %v", msg.Type, p.connID, err)
	}
}

func (r *Room) broadcast(msg *protocol.Message) {
	r.transport.SendToGroup(r.id, msg)
}

func (r *Room) sendRoomState(p *PlayerState) {
	r.sendTo(p, protocol.MustNewMessage(protocol.MsgRoomState, protocol.RoomStatePayload{
		Targets: p.pool.View(),
		Players: r.playerViews(),
	}))
}

func (r *Room) playerViews() []protocol.PlayerInfo {
	return []protocol.PlayerInfo{r.players[0].View(), r.players[1].View()}
}

// --- 旁路持久化 ---

func (r *Room) snapshotData() *storage.RoomData {
	players := make([]storage.PlayerData, len(r.players))
	for i, p := range r.players {
		players[i] = storage.PlayerData{
			ID:           p.connID,
			Heart:        p.heart,
			Kills:        p.kills,
			Ready:        p.ready,
			Disconnected: p.disconnected,
		}
	}
	return &storage.RoomData{
		ID:        r.id,
		State:     r.state.String(),
		Players:   players,
		CreatedAt: r.createdAt.UnixMilli(),
		UpdatedAt: r.clock.Now().UnixMilli(),
	}
}

// persist 异步镜像房间状态到 Redis
func (r *Room) persist() {
	if r.store == nil {
		return
	}
	store, data := r.store, r.snapshotData()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := store.SaveRoom(ctx, data); err != nil {
			logger.LogWarn("⚠️ 保存房间 %s 失败: %v", data.ID, err)
		}
	}()
}

func (r *Room) saveSession(p *PlayerState, disconnectedAt time.Time) {
	if r.store == nil {
		return
	}
	session := &storage.PlayerSessionData{
		PlayerID:       p.connID,
		RoomID:         r.id,
		ReconnectToken: p.token,
	}
	if !disconnectedAt.IsZero() {
		session.DisconnectedAt = disconnectedAt.UnixMilli()
	}
	store := r.store
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := store.SaveSession(ctx, session); err != nil {
			logger.LogWarn("⚠️ 保存会话 %s 失败: %v", session.PlayerID, err)
		}
	}()
}

func (r *Room) deleteSessions(ids ...string) {
	if r.store == nil {
		return
	}
	store := r.store
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := store.DeleteSession(ctx, ids...); err != nil {
			logger.LogWarn("⚠️ 删除会话失败: %v", err)
		}
	}()
}

// publish 异步发布对局事件，fn 不得访问房间状态
func (r *Room) publish(fn func(ctx context.Context) error) {
	id := r.id
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.LogWarn("⚠️ 房间 %s 事件发布失败: %v", id, err)
		}
	}()
}
