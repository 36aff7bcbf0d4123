package room

import (
	"context"
	"math"
	"time"

	"github.com/palemoky/word-duel/internal/events"
	"github.com/palemoky/word-duel/internal/game/difficulty"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
)

// step 推进一帧
func (r *Room) step(now time.Time) {
	if r.state != StateRunning {
		return
	}

	dt := now.Sub(r.lastTickAt)
	if dt < 0 {
		dt = 0
	}
	if dt > maxTickDelta {
		dt = maxTickDelta
	}
	r.lastTickAt = now

	elapsed := now.Sub(r.createdAt)
	phase := difficulty.At(elapsed)
	if idx := difficulty.Index(elapsed); idx != r.phaseIndex {
		r.phaseIndex = idx
		logger.LogInfo("📈 房间 %s 进入难度阶段 %d (已进行 %v)", r.id, idx, elapsed.Truncate(time.Second))
	}

	var eliminated []*PlayerState
	for _, p := range r.players {
		// 离线玩家的目标池冻结
		if p.disconnected {
			continue
		}
		if r.advancePlayer(p, phase, dt, now) {
			eliminated = append(eliminated, p)
		}
	}

	if len(eliminated) > 0 {
		r.endMatch(eliminated)
		return
	}

	if now.Sub(r.lastSnapshotAt) >= r.settings.SnapshotInterval {
		r.lastSnapshotAt = now
		for _, p := range r.players {
			r.sendRoomState(p)
		}
	}
}

// advancePlayer 处理单个玩家的生成、移动、抵达和增量下发，返回是否被淘汰
func (r *Room) advancePlayer(p *PlayerState, phase difficulty.Phase, dt time.Duration, now time.Time) bool {
	p.spawnCooldown -= dt
	if p.spawnCooldown <= 0 && p.pool.AliveCount() < phase.MaxAlive {
		angle := r.rng.Float64() * 2 * math.Pi
		t := p.pool.Spawn(r.words.Pick(r.rng), angle, phase.Speed(r.rng), p.connID)
		r.sendTo(p, protocol.MustNewMessage(protocol.MsgSpawnTarget, protocol.SpawnTargetPayload{TargetInfo: t.View()}))
		p.spawnCooldown = phase.SpawnCooldown(r.rng)
	}

	changed, reached := p.pool.Advance(dt.Seconds())

	if len(reached) > 0 {
		p.loseHearts(len(reached))
		r.sendTo(p, protocol.MustNewMessage(protocol.MsgTargetReached, protocol.TargetReachedPayload{TargetIDs: reached}))
		r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerStats, p.statsPayload()))
	}

	if len(changed) > 0 {
		r.sendTo(p, protocol.MustNewMessage(protocol.MsgTargetUpdate, protocol.TargetUpdatePayload{
			Updates: changed,
			T:       now.UnixMilli(),
		}))
	}

	return p.heart == 0
}

// endMatch 结算并结束对局；双方同帧淘汰判为平局
func (r *Room) endMatch(eliminated []*PlayerState) {
	payload := protocol.MatchEndPayload{Players: r.playerViews()}
	if len(eliminated) > 1 {
		payload.Reason = protocol.ReasonDraw
	} else {
		loser := eliminated[0]
		payload.Reason = protocol.ReasonPlayerDied
		payload.LoserID = loser.connID
		if winner := r.opponentOf(loser); !winner.disconnected {
			payload.WinnerID = winner.connID
		}
	}

	r.broadcast(protocol.MustNewMessage(protocol.MsgMatchEnd, payload))
	logger.LogInfo("🏆 房间 %s 对局结束: reason=%s winner=%s loser=%s", r.id, payload.Reason, payload.WinnerID, payload.LoserID)

	ended := events.MatchEnded{
		RoomID:   r.id,
		Reason:   payload.Reason,
		WinnerID: payload.WinnerID,
		LoserID:  payload.LoserID,
		Players:  payload.Players,
		Duration: r.lastTickAt.Sub(r.startedAt),
		EndedAt:  r.lastTickAt,
	}
	r.publish(func(ctx context.Context) error {
		return r.publisher.PublishMatchEnded(ctx, ended)
	})

	r.finish()
}
