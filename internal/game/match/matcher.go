package match

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/game/room"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/types"
)

// mirrorTimeout Redis 队列镜像写入超时
const mirrorTimeout = 2 * time.Second

// Rooms 匹配器依赖的房间注册表操作
type Rooms interface {
	Create(a, b string) (*room.Room, error)
	InRoom(connID string) bool
	Disconnect(connID string) bool
}

// MatcherDeps 匹配器依赖，均可为 nil（仅测试队列操作时）
type MatcherDeps struct {
	Rooms     Rooms
	Transport types.Transport
	Liveness  types.Liveness
	Store     types.QueueStore
}

// Matcher 匹配系统
//
// 配对与建房在同一把锁内完成；锁顺序 Matcher → Registry。
type Matcher struct {
	deps  MatcherDeps
	queue []string
	mu    sync.Mutex
}

// NewMatcher 创建匹配器
func NewMatcher(deps MatcherDeps) *Matcher {
	return &Matcher{
		deps:  deps,
		queue: make([]string, 0),
	}
}

// Enqueue 加入匹配队列，已在队列中时忽略
func (m *Matcher) Enqueue(connID string) error {
	m.mu.Lock()
	if m.deps.Rooms != nil && m.deps.Rooms.InRoom(connID) {
		m.mu.Unlock()
		logger.LogInfo("🚫 玩家 %s 已在房间中，拒绝加入匹配队列", connID)
		return apperrors.ErrAlreadyInRoom
	}
	if slices.Contains(m.queue, connID) {
		m.mu.Unlock()
		return nil
	}

	m.queue = append(m.queue, connID)
	logger.LogInfo("🔍 玩家 %s 加入匹配队列，当前队列长度: %d", connID, len(m.queue))

	removed := m.tryMatch()
	m.mu.Unlock()

	m.mirror(func(ctx context.Context, s types.QueueStore) error {
		if i := slices.Index(removed, connID); i >= 0 {
			// 本次即已出队，不写入镜像
			removed = slices.Delete(removed, i, i+1)
		} else if err := s.AddToMatchQueue(ctx, connID); err != nil {
			return err
		}
		if len(removed) > 0 {
			return s.RemoveFromMatchQueue(ctx, removed...)
		}
		return nil
	})
	return nil
}

// Leave 仅从匹配队列移除，返回是否在队列中
func (m *Matcher) Leave(connID string) bool {
	m.mu.Lock()
	i := slices.Index(m.queue, connID)
	if i >= 0 {
		m.queue = slices.Delete(m.queue, i, i+1)
		logger.LogInfo("🔍 玩家 %s 离开匹配队列", connID)
	}
	m.mu.Unlock()

	if i < 0 {
		return false
	}
	m.mirror(func(ctx context.Context, s types.QueueStore) error {
		return s.RemoveFromMatchQueue(ctx, connID)
	})
	return true
}

// Dequeue 连接断开或主动离开：移出匹配队列，若在房间中则按掉线通知房间
func (m *Matcher) Dequeue(connID string) {
	m.Leave(connID)
	if m.deps.Rooms != nil {
		m.deps.Rooms.Disconnect(connID)
	}
}

// tryMatch 尝试配对，返回已出队的连接（配对成功或失效）
//
// 调用方须持有 m.mu。重试次数以进入时的队列长度为上限。
func (m *Matcher) tryMatch() []string {
	if m.deps.Rooms == nil {
		return nil
	}
	var removed []string
	for attempts := len(m.queue); attempts > 0 && len(m.queue) >= 2; attempts-- {
		a, b := m.queue[0], m.queue[1]
		m.queue = m.queue[2:]

		aLive, bLive := m.isAlive(a), m.isAlive(b)
		switch {
		case aLive && bLive:
			if !m.createMatch(a, b, &removed) {
				return removed
			}
		case aLive:
			logger.LogDebug("🧹 清理失效连接 %s", b)
			m.queue = slices.Insert(m.queue, 0, a)
			removed = append(removed, b)
		case bLive:
			logger.LogDebug("🧹 清理失效连接 %s", a)
			m.queue = slices.Insert(m.queue, 0, b)
			removed = append(removed, a)
		default:
			logger.LogDebug("🧹 清理失效连接 %s, %s", a, b)
			removed = append(removed, a, b)
		}
	}
	return removed
}

// createMatch 为一对存活连接建房并下发 match-found，返回是否可以继续配对
func (m *Matcher) createMatch(a, b string, removed *[]string) bool {
	r, err := m.deps.Rooms.Create(a, b)
	if err != nil {
		logger.LogWarn("⚠️ 匹配创建房间失败 (%s, %s): %v", a, b, err)
		if !errors.Is(err, apperrors.ErrAlreadyInRoom) {
			// 放回队首，等待下一次匹配
			m.queue = slices.Insert(m.queue, 0, a, b)
			return false
		}
		// 已在房间中的连接出队，其余放回队首
		var keep []string
		for _, id := range []string{a, b} {
			if m.deps.Rooms.InRoom(id) {
				*removed = append(*removed, id)
			} else {
				keep = append(keep, id)
			}
		}
		m.queue = slices.Insert(m.queue, 0, keep...)
		return true
	}

	*removed = append(*removed, a, b)
	logger.LogInfo("🎮 匹配成功！房间 %s，玩家: %s vs %s", r.ID(), a, b)

	m.notify(a, b, r)
	m.notify(b, a, r)
	return true
}

func (m *Matcher) notify(self, opponent string, r *room.Room) {
	if m.deps.Transport == nil {
		return
	}
	msg := protocol.MustNewMessage(protocol.MsgMatchFound, protocol.MatchFoundPayload{
		RoomID:         r.ID(),
		PlayerID:       self,
		OpponentID:     opponent,
		ReconnectToken: r.InitialToken(self),
	})
	if err := m.deps.Transport.SendTo(self, msg); err != nil {
		logger.LogDebug("📭 match-found 无法送达 %s: %v", self, err)
	}
}

func (m *Matcher) isAlive(connID string) bool {
	if m.deps.Liveness == nil {
		return true
	}
	return m.deps.Liveness.IsAlive(connID)
}

// mirror 在锁外同步写入 Redis 队列镜像，失败仅记录日志
func (m *Matcher) mirror(fn func(ctx context.Context, s types.QueueStore) error) {
	if m.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := fn(ctx, m.deps.Store); err != nil {
		logger.LogWarn("⚠️ 同步匹配队列到 Redis 失败: %v", err)
	}
}

// QueueLength 获取队列长度
func (m *Matcher) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// InQueue 连接是否在匹配队列中
func (m *Matcher) InQueue(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.queue, connID)
}
